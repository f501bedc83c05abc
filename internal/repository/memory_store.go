package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/rpattn/billingapi/internal/query"
	"github.com/rpattn/billingapi/internal/schema"
)

type memoryRow struct {
	seq    int64
	data   []byte
	entity any
}

// MemoryStore keeps entities in process. Reads return fresh copies, so callers
// may mutate what they get back.
type MemoryStore struct {
	registry *schema.Registry
	resolver RelationResolver

	mu     sync.RWMutex
	seq    int64
	tables map[string][]memoryRow
}

// NewMemoryStore creates an empty store for the registered entity types.
func NewMemoryStore(registry *schema.Registry) *MemoryStore {
	s := &MemoryStore{
		registry: registry,
		tables:   make(map[string][]memoryRow),
	}
	s.resolver = NewStoreResolver(s)
	return s
}

func (s *MemoryStore) descriptor(entityType string) (*schema.Descriptor, error) {
	desc, ok := s.registry.Lookup(entityType)
	if !ok {
		return nil, fmt.Errorf("%s: %w", entityType, ErrUnknownEntityType)
	}
	return desc, nil
}

// Query starts a query over entityType.
func (s *MemoryStore) Query(entityType string) Query {
	return NewQuery(entityType)
}

// First returns the first record matching q, or ErrNoRows.
func (s *MemoryStore) First(ctx context.Context, q Query) (any, error) {
	results, err := s.All(ctx, q.Page(q.Skip, 1))
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrNoRows
	}
	return results[0], nil
}

// All returns every record matching q in order, within the page window.
func (s *MemoryStore) All(ctx context.Context, q Query) ([]any, error) {
	desc, err := s.descriptor(q.EntityType)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	var matched []memoryRow
	for _, row := range s.tables[desc.Name()] {
		if query.Evaluate(desc, q.Predicate, row.entity) {
			matched = append(matched, row)
		}
	}
	s.mu.RUnlock()

	if q.Ordering != nil {
		compare := query.Comparator(desc, q.Ordering)
		sort.SliceStable(matched, func(i, j int) bool {
			return compare(matched[i].entity, matched[j].entity) < 0
		})
	}

	if q.Skip >= len(matched) {
		return []any{}, nil
	}
	end := len(matched)
	if q.Take > 0 && q.Skip+q.Take < end {
		end = q.Skip + q.Take
	}
	window := matched[q.Skip:end]

	out := make([]any, 0, len(window))
	for _, row := range window {
		entity, err := decodeProperties(desc, row.data)
		if err != nil {
			return nil, err
		}
		out = append(out, entity)
	}

	if err := attachRelations(ctx, s.registry, s.resolver, desc, out, q.Relations); err != nil {
		return nil, err
	}
	return out, nil
}

// Add inserts entity. Its identifier must be unique within the entity type.
func (s *MemoryStore) Add(ctx context.Context, entityType string, entity any) error {
	desc, row, err := s.snapshot(entityType, entity)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.tables[desc.Name()]
	id := desc.IDOf(entity)
	for _, existing := range rows {
		if desc.IDOf(existing.entity) == id {
			return fmt.Errorf("%s %s: %w", desc.Name(), id, ErrDuplicate)
		}
	}
	s.seq++
	row.seq = s.seq
	s.tables[desc.Name()] = append(rows, row)
	return nil
}

// Update replaces the stored record with the same identifier and tenant.
func (s *MemoryStore) Update(ctx context.Context, entityType string, entity any) error {
	desc, row, err := s.snapshot(entityType, entity)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.tables[desc.Name()]
	idx := s.indexOf(desc, rows, desc.IDOf(entity), desc.TenantOf(entity))
	if idx < 0 {
		return ErrNoRows
	}
	row.seq = rows[idx].seq
	rows[idx] = row
	return nil
}

// Remove deletes the stored record with the same identifier and tenant.
func (s *MemoryStore) Remove(ctx context.Context, entityType string, entity any) error {
	desc, err := s.descriptor(entityType)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.tables[desc.Name()]
	idx := s.indexOf(desc, rows, desc.IDOf(entity), desc.TenantOf(entity))
	if idx < 0 {
		return ErrNoRows
	}
	s.tables[desc.Name()] = append(rows[:idx:idx], rows[idx+1:]...)
	return nil
}

func (s *MemoryStore) indexOf(desc *schema.Descriptor, rows []memoryRow, id, tenantID uuid.UUID) int {
	if tenantID == uuid.Nil {
		return -1
	}
	for i, row := range rows {
		if desc.IDOf(row.entity) == id && desc.TenantOf(row.entity) == tenantID {
			return i
		}
	}
	return -1
}

func (s *MemoryStore) snapshot(entityType string, entity any) (*schema.Descriptor, memoryRow, error) {
	desc, err := s.descriptor(entityType)
	if err != nil {
		return nil, memoryRow{}, err
	}
	if !desc.Accepts(entity) {
		return nil, memoryRow{}, fmt.Errorf("%s: unexpected entity %T", desc.Name(), entity)
	}
	data, err := encodeProperties(desc, entity)
	if err != nil {
		return nil, memoryRow{}, err
	}
	stored, err := decodeProperties(desc, data)
	if err != nil {
		return nil, memoryRow{}, err
	}
	return desc, memoryRow{data: data, entity: stored}, nil
}
