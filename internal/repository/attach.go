package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/rpattn/billingapi/internal/query"
	"github.com/rpattn/billingapi/internal/schema"
)

// RelationResolver fetches related entities of one type for one tenant.
// Missing identifiers are simply absent from the result.
type RelationResolver interface {
	Resolve(ctx context.Context, target *schema.Descriptor, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]any, error)
}

type resolverKey struct{}

// WithResolver stores a request scoped resolver, typically a batching loader.
func WithResolver(ctx context.Context, r RelationResolver) context.Context {
	return context.WithValue(ctx, resolverKey{}, r)
}

// ResolverFromContext returns the resolver stored in ctx, if any.
func ResolverFromContext(ctx context.Context) (RelationResolver, bool) {
	r, ok := ctx.Value(resolverKey{}).(RelationResolver)
	return r, ok
}

// storeResolver reads related entities straight from a store.
type storeResolver struct {
	store Store
}

// NewStoreResolver resolves relations with one query per target type and tenant.
func NewStoreResolver(store Store) RelationResolver {
	return storeResolver{store: store}
}

func (r storeResolver) Resolve(ctx context.Context, target *schema.Descriptor, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]any, error) {
	out := make(map[uuid.UUID]any, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	q := r.store.Query(target.Name()).Where(query.ByIdentifiers(target, tenantID, ids))
	related, err := r.store.All(ctx, q)
	if err != nil {
		return nil, err
	}
	for _, e := range related {
		out[target.IDOf(e)] = e
	}
	return out, nil
}

// attachRelations loads each named relation for entities. Related records are
// looked up in the parent's tenant only.
func attachRelations(ctx context.Context, reg *schema.Registry, fallback RelationResolver, desc *schema.Descriptor, entities []any, relations []string) error {
	if len(entities) == 0 || len(relations) == 0 {
		return nil
	}
	resolver, ok := ResolverFromContext(ctx)
	if !ok {
		resolver = fallback
	}

	for _, name := range relations {
		rel, ok := desc.Relation(name)
		if !ok || !rel.Attachable {
			continue
		}
		target, ok := reg.Lookup(rel.Target)
		if !ok {
			return fmt.Errorf("relation %s.%s: %w", desc.Name(), rel.Name, ErrUnknownEntityType)
		}
		fk, _ := desc.Field(rel.ForeignKey)

		byTenant := make(map[uuid.UUID][]uuid.UUID)
		for _, e := range entities {
			id, ok := fk.Value(e).(uuid.UUID)
			if !ok {
				continue
			}
			tenant := desc.TenantOf(e)
			byTenant[tenant] = append(byTenant[tenant], id)
		}

		found := make(map[uuid.UUID]map[uuid.UUID]any, len(byTenant))
		for tenant, ids := range byTenant {
			related, err := resolver.Resolve(ctx, target, tenant, ids)
			if err != nil {
				return fmt.Errorf("attach %s.%s: %w", desc.Name(), rel.Name, err)
			}
			found[tenant] = related
		}

		for _, e := range entities {
			id, ok := fk.Value(e).(uuid.UUID)
			if !ok {
				continue
			}
			related, ok := found[desc.TenantOf(e)][id]
			if !ok {
				continue
			}
			if err := rel.Assign(e, related); err != nil {
				return fmt.Errorf("attach %s.%s: %w", desc.Name(), rel.Name, err)
			}
		}
	}
	return nil
}
