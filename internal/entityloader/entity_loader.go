package entityloader

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/graph-gophers/dataloader"

	"github.com/rpattn/billingapi/internal/query"
	"github.com/rpattn/billingapi/internal/repository"
	"github.com/rpattn/billingapi/internal/schema"
)

// EntityLoader batches and caches related-entity lookups for one request.
// It satisfies repository.RelationResolver.
type EntityLoader struct {
	Loader *dataloader.Loader
}

type loaderKey struct {
	entityType string
	tenantID   uuid.UUID
	id         uuid.UUID
}

func (k loaderKey) String() string {
	return k.entityType + "|" + k.tenantID.String() + "|" + k.id.String()
}

func parseKey(raw string) (loaderKey, error) {
	parts := strings.Split(raw, "|")
	if len(parts) != 3 {
		return loaderKey{}, fmt.Errorf("malformed loader key %q", raw)
	}
	tenant, err := uuid.Parse(parts[1])
	if err != nil {
		return loaderKey{}, fmt.Errorf("invalid tenant in key: %w", err)
	}
	id, err := uuid.Parse(parts[2])
	if err != nil {
		return loaderKey{}, fmt.Errorf("invalid UUID: %w", err)
	}
	return loaderKey{entityType: parts[0], tenantID: tenant, id: id}, nil
}

// NewEntityLoader creates a loader that reads through store.
func NewEntityLoader(store repository.Store, registry *schema.Registry) *EntityLoader {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		results := make([]*dataloader.Result, len(keys))

		type group struct {
			entityType string
			tenantID   uuid.UUID
		}
		parsed := make([]loaderKey, len(keys))
		grouped := make(map[group][]uuid.UUID)
		for i, k := range keys {
			key, err := parseKey(k.String())
			if err != nil {
				results[i] = &dataloader.Result{Error: err}
				continue
			}
			parsed[i] = key
			g := group{entityType: key.entityType, tenantID: key.tenantID}
			grouped[g] = append(grouped[g], key.id)
		}

		// Fetch entities in batch, one query per type and tenant
		found := make(map[loaderKey]any)
		failed := make(map[group]error)
		for g, ids := range grouped {
			desc, ok := registry.Lookup(g.entityType)
			if !ok {
				failed[g] = fmt.Errorf("%s: %w", g.entityType, repository.ErrUnknownEntityType)
				continue
			}
			q := store.Query(desc.Name()).Where(query.ByIdentifiers(desc, g.tenantID, ids))
			entities, err := store.All(ctx, q)
			if err != nil {
				failed[g] = err
				continue
			}
			for _, e := range entities {
				found[loaderKey{entityType: g.entityType, tenantID: g.tenantID, id: desc.IDOf(e)}] = e
			}
		}

		// Build results in the same order as keys
		for i := range keys {
			if results[i] != nil {
				continue
			}
			key := parsed[i]
			if err, ok := failed[group{entityType: key.entityType, tenantID: key.tenantID}]; ok {
				results[i] = &dataloader.Result{Error: err}
				continue
			}
			results[i] = &dataloader.Result{Data: found[key]}
		}
		return results
	}

	loader := dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(5*time.Millisecond))

	return &EntityLoader{Loader: loader}
}

// Resolve loads the entities of target with the given ids inside tenantID.
func (l *EntityLoader) Resolve(ctx context.Context, target *schema.Descriptor, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]any, error) {
	out := make(map[uuid.UUID]any, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make(dataloader.Keys, len(ids))
	for i, id := range ids {
		keys[i] = dataloader.StringKey(loaderKey{entityType: target.Name(), tenantID: tenantID, id: id}.String())
	}

	values, errs := l.Loader.LoadMany(ctx, keys)()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	for i, v := range values {
		if v == nil {
			continue
		}
		out[ids[i]] = v
	}
	return out, nil
}
