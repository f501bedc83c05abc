package query

import (
	"strings"

	"github.com/google/uuid"

	"github.com/rpattn/billingapi/internal/schema"
)

// PredicateKind identifies the node type of a predicate tree.
type PredicateKind string

const (
	KindTrue    PredicateKind = "true"
	KindFalse   PredicateKind = "false"
	KindAnd     PredicateKind = "and"
	KindOr      PredicateKind = "or"
	KindCompare PredicateKind = "compare"
)

// Predicate is a boolean test over one entity, kept as plain data so it can be
// inspected, serialized, interpreted in memory or translated to SQL.
type Predicate struct {
	Kind     PredicateKind `json:"kind"`
	Field    string        `json:"field,omitempty"`
	Operator Operator      `json:"operator,omitempty"`
	Value    any           `json:"value,omitempty"`
	Children []Predicate   `json:"children,omitempty"`
}

// True is the predicate every entity satisfies.
func True() Predicate { return Predicate{Kind: KindTrue} }

// False is the predicate no entity satisfies.
func False() Predicate { return Predicate{Kind: KindFalse} }

// Compare tests one field against a value.
func Compare(field string, op Operator, value any) Predicate {
	return Predicate{Kind: KindCompare, Field: field, Operator: op, Value: value}
}

// And conjoins children. Constant children are folded away.
func And(children ...Predicate) Predicate {
	kept := make([]Predicate, 0, len(children))
	for _, c := range children {
		switch c.Kind {
		case KindTrue:
			continue
		case KindFalse:
			return False()
		case KindAnd:
			kept = append(kept, c.Children...)
		default:
			kept = append(kept, c)
		}
	}
	switch len(kept) {
	case 0:
		return True()
	case 1:
		return kept[0]
	}
	return Predicate{Kind: KindAnd, Children: kept}
}

// Or disjoins children. An empty disjunction is false.
func Or(children ...Predicate) Predicate {
	kept := make([]Predicate, 0, len(children))
	for _, c := range children {
		switch c.Kind {
		case KindFalse:
			continue
		case KindTrue:
			return True()
		case KindOr:
			kept = append(kept, c.Children...)
		default:
			kept = append(kept, c)
		}
	}
	switch len(kept) {
	case 0:
		return False()
	case 1:
		return kept[0]
	}
	return Predicate{Kind: KindOr, Children: kept}
}

// IsTrue reports whether p is the constant true predicate.
func (p Predicate) IsTrue() bool { return p.Kind == KindTrue }

// CompileCriteria ANDs the validated criteria with the free-text search
// disjunction. No criteria and a blank term yield True.
func CompileCriteria(desc *schema.Descriptor, criteria []Criterion, searchTerm string) Predicate {
	parts := make([]Predicate, 0, len(criteria)+1)
	for _, c := range criteria {
		parts = append(parts, Compare(c.Field, c.Operator, c.Value))
	}
	if term := strings.TrimSpace(searchTerm); term != "" {
		parts = append(parts, Search(desc, term))
	}
	return And(parts...)
}

// Search matches term case-insensitively against every searchable text field.
func Search(desc *schema.Descriptor, term string) Predicate {
	fields := desc.Searchable()
	alts := make([]Predicate, 0, len(fields))
	for _, f := range fields {
		alts = append(alts, Compare(f.Name, OpContains, term))
	}
	return Or(alts...)
}

// TenantScope restricts a query to the records of one tenant.
func TenantScope(desc *schema.Descriptor, tenantID uuid.UUID) Predicate {
	return Compare(desc.Tenant().Name, OpEqual, tenantID)
}

// Compile builds the complete, tenant scoped predicate for a list request.
func Compile(desc *schema.Descriptor, tenantID uuid.UUID, criteria []Criterion, searchTerm string) Predicate {
	return And(TenantScope(desc, tenantID), CompileCriteria(desc, criteria, searchTerm))
}

// ByIdentifier matches the single record with id inside the tenant.
func ByIdentifier(desc *schema.Descriptor, tenantID, id uuid.UUID) Predicate {
	return And(TenantScope(desc, tenantID), Compare(desc.Identifier().Name, OpEqual, id))
}

// ByIdentifiers matches the records whose id is in ids inside the tenant.
func ByIdentifiers(desc *schema.Descriptor, tenantID uuid.UUID, ids []uuid.UUID) Predicate {
	values := make([]any, len(ids))
	for i, id := range ids {
		values[i] = id
	}
	return And(TenantScope(desc, tenantID), Compare(desc.Identifier().Name, OpIn, values))
}
