package repository

import (
	"context"
	"errors"

	"github.com/rpattn/billingapi/internal/query"
)

var (
	// ErrNoRows is returned when no record matches a lookup, update or removal.
	ErrNoRows = errors.New("no matching record")
	// ErrDuplicate is returned when a record with the same identifier already exists.
	ErrDuplicate = errors.New("record already exists")
	// ErrUnknownEntityType is returned for entity types missing from the registry.
	ErrUnknownEntityType = errors.New("unknown entity type")
)

// Store persists entities of any registered type. Predicates and orderings
// arrive as data and are executed by the store.
type Store interface {
	Query(entityType string) Query
	First(ctx context.Context, q Query) (any, error)
	All(ctx context.Context, q Query) ([]any, error)
	Add(ctx context.Context, entityType string, entity any) error
	Update(ctx context.Context, entityType string, entity any) error
	Remove(ctx context.Context, entityType string, entity any) error
}

// Query describes a read against one entity type. Builder methods return a
// modified copy, so a Query value can be shared and extended safely.
type Query struct {
	EntityType string
	Predicate  query.Predicate
	Ordering   *query.Ordering
	Skip       int
	Take       int
	Relations  []string
}

// NewQuery starts an unfiltered query over entityType.
func NewQuery(entityType string) Query {
	return Query{EntityType: entityType, Predicate: query.True()}
}

// Where ANDs p into the query predicate.
func (q Query) Where(p query.Predicate) Query {
	q.Predicate = query.And(q.Predicate, p)
	return q
}

// OrderBy sets the ordering. Ties always fall back to insertion order.
func (q Query) OrderBy(o *query.Ordering) Query {
	q.Ordering = o
	return q
}

// Page limits the result window. A take of zero means no limit.
func (q Query) Page(skip, take int) Query {
	q.Skip = max(skip, 0)
	q.Take = max(take, 0)
	return q
}

// Attach requests eager loading of the named relations.
func (q Query) Attach(relations ...string) Query {
	merged := make([]string, 0, len(q.Relations)+len(relations))
	merged = append(merged, q.Relations...)
	merged = append(merged, relations...)
	q.Relations = merged
	return q
}
