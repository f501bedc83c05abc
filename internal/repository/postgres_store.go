package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpattn/billingapi/internal/schema"
)

const uniqueViolation = "23505"

// PostgresStore keeps every entity type in one JSONB backed table.
type PostgresStore struct {
	pool     *pgxpool.Pool
	registry *schema.Registry
	resolver RelationResolver
}

// NewPostgresStore creates a store over an open pool. The entity_records
// table is created by the embedded migrations.
func NewPostgresStore(pool *pgxpool.Pool, registry *schema.Registry) *PostgresStore {
	s := &PostgresStore{pool: pool, registry: registry}
	s.resolver = NewStoreResolver(s)
	return s
}

func (s *PostgresStore) descriptor(entityType string) (*schema.Descriptor, error) {
	desc, ok := s.registry.Lookup(entityType)
	if !ok {
		return nil, fmt.Errorf("%s: %w", entityType, ErrUnknownEntityType)
	}
	return desc, nil
}

// Query starts a query over entityType.
func (s *PostgresStore) Query(entityType string) Query {
	return NewQuery(entityType)
}

// First returns the first record matching q, or ErrNoRows.
func (s *PostgresStore) First(ctx context.Context, q Query) (any, error) {
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
func (s *PostgresStore) All(ctx context.Context, q Query) ([]any, error) {
	desc, err := s.descriptor(q.EntityType)
	if err != nil {
		return nil, err
	}

	builder := newSQLBuilder()
	sql, err := builder.selectStatement(desc, q)
	if err != nil {
		return nil, fmt.Errorf("build %s query: %w", desc.Name(), err)
	}

	rows, err := s.pool.Query(ctx, sql, builder.args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", desc.Name(), err)
	}
	defer rows.Close()

	out := make([]any, 0)
	for rows.Next() {
		var properties []byte
		if err := rows.Scan(&properties); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", desc.Name(), err)
		}
		entity, err := decodeProperties(desc, properties)
		if err != nil {
			return nil, err
		}
		out = append(out, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s rows: %w", desc.Name(), err)
	}

	if err := attachRelations(ctx, s.registry, s.resolver, desc, out, q.Relations); err != nil {
		return nil, err
	}
	return out, nil
}

// Add inserts entity.
func (s *PostgresStore) Add(ctx context.Context, entityType string, entity any) error {
	desc, properties, err := s.encode(entityType, entity)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO entity_records (entity_type, id, tenant_id, properties) VALUES ($1, $2, $3, $4)`,
		desc.Name(), desc.IDOf(entity), nullableTenant(desc, entity), properties,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%s %s: %w", desc.Name(), desc.IDOf(entity), ErrDuplicate)
		}
		return fmt.Errorf("insert %s: %w", desc.Name(), err)
	}
	return nil
}

// Update replaces the stored record with the same identifier and tenant.
func (s *PostgresStore) Update(ctx context.Context, entityType string, entity any) error {
	desc, properties, err := s.encode(entityType, entity)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE entity_records SET properties = $1, updated_at = now()
		 WHERE entity_type = $2 AND id = $3 AND tenant_id = $4`,
		properties, desc.Name(), desc.IDOf(entity), nullableTenant(desc, entity),
	)
	if err != nil {
		return fmt.Errorf("update %s: %w", desc.Name(), err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRows
	}
	return nil
}

// Remove deletes the stored record with the same identifier and tenant.
func (s *PostgresStore) Remove(ctx context.Context, entityType string, entity any) error {
	desc, err := s.descriptor(entityType)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM entity_records WHERE entity_type = $1 AND id = $2 AND tenant_id = $3`,
		desc.Name(), desc.IDOf(entity), nullableTenant(desc, entity),
	)
	if err != nil {
		return fmt.Errorf("delete %s: %w", desc.Name(), err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRows
	}
	return nil
}

func (s *PostgresStore) encode(entityType string, entity any) (*schema.Descriptor, []byte, error) {
	desc, err := s.descriptor(entityType)
	if err != nil {
		return nil, nil, err
	}
	if !desc.Accepts(entity) {
		return nil, nil, fmt.Errorf("%s: unexpected entity %T", desc.Name(), entity)
	}
	properties, err := encodeProperties(desc, entity)
	if err != nil {
		return nil, nil, err
	}
	return desc, properties, nil
}

func nullableTenant(desc *schema.Descriptor, entity any) *uuid.UUID {
	tenant := desc.TenantOf(entity)
	if tenant == uuid.Nil {
		return nil
	}
	return &tenant
}
