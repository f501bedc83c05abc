package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rpattn/billingapi/internal/query"
	"github.com/rpattn/billingapi/internal/schema"
)

type sqlBuilder struct {
	args []any
}

func newSQLBuilder() *sqlBuilder {
	return &sqlBuilder{args: make([]any, 0)}
}

func (b *sqlBuilder) addArg(value any) int {
	b.args = append(b.args, value)
	return len(b.args)
}

func (b *sqlBuilder) placeholder(idx int) string {
	return fmt.Sprintf("$%d", idx)
}

func (b *sqlBuilder) bind(value any) string {
	return b.placeholder(b.addArg(value))
}

var sqlTypes = map[schema.DataType]string{
	schema.TypeText:     "text",
	schema.TypeInteger:  "bigint",
	schema.TypeFloat:    "double precision",
	schema.TypeBoolean:  "boolean",
	schema.TypeDateTime: "timestamptz",
	schema.TypeUUID:     "uuid",
}

// fieldExpr maps a scalar field to its SQL expression. The identifier and
// tenant live in dedicated columns; everything else is read from the JSONB
// document with the property name bound as a parameter.
func (b *sqlBuilder) fieldExpr(desc *schema.Descriptor, f *schema.Field) string {
	switch f.Role {
	case schema.RoleIdentifier:
		return "id"
	case schema.RoleTenant:
		return "tenant_id"
	}
	key := b.bind(f.Name)
	if f.Type == schema.TypeText {
		return fmt.Sprintf("(properties ->> %s::text)", key)
	}
	return fmt.Sprintf("((properties ->> %s::text)::%s)", key, sqlTypes[f.Type])
}

// predicate translates p into a boolean SQL expression. It mirrors
// query.Evaluate, including the treatment of nulls.
func (b *sqlBuilder) predicate(desc *schema.Descriptor, p query.Predicate) (string, error) {
	switch p.Kind {
	case query.KindTrue:
		return "TRUE", nil
	case query.KindFalse:
		return "FALSE", nil
	case query.KindAnd, query.KindOr:
		if len(p.Children) == 0 {
			if p.Kind == query.KindAnd {
				return "TRUE", nil
			}
			return "FALSE", nil
		}
		parts := make([]string, 0, len(p.Children))
		for _, c := range p.Children {
			sql, err := b.predicate(desc, c)
			if err != nil {
				return "", err
			}
			parts = append(parts, sql)
		}
		sep := " AND "
		if p.Kind == query.KindOr {
			sep = " OR "
		}
		return "(" + strings.Join(parts, sep) + ")", nil
	case query.KindCompare:
		return b.compare(desc, p)
	default:
		return "", fmt.Errorf("unsupported predicate kind %q", p.Kind)
	}
}

func (b *sqlBuilder) compare(desc *schema.Descriptor, p query.Predicate) (string, error) {
	f, ok := desc.Field(p.Field)
	if !ok || !f.IsScalar() {
		return "FALSE", nil
	}
	cast := sqlTypes[f.Type]

	switch p.Operator {
	case query.OpEqual, query.OpNotEqual:
		expr := b.fieldExpr(desc, f)
		if p.Value == nil {
			if p.Operator == query.OpEqual {
				return expr + " IS NULL", nil
			}
			return expr + " IS NOT NULL", nil
		}
		v, err := schema.Coerce(f.Type, p.Value)
		if err != nil {
			return "", fmt.Errorf("field %s: %w", f.Name, err)
		}
		if p.Operator == query.OpEqual {
			return fmt.Sprintf("%s = %s::%s", expr, b.bind(v), cast), nil
		}
		return fmt.Sprintf("%s IS DISTINCT FROM %s::%s", expr, b.bind(v), cast), nil

	case query.OpGreaterThan, query.OpGreaterOrEqual, query.OpLessThan, query.OpLessOrEqual:
		if p.Value == nil {
			return "FALSE", nil
		}
		v, err := schema.Coerce(f.Type, p.Value)
		if err != nil {
			return "", fmt.Errorf("field %s: %w", f.Name, err)
		}
		expr := b.fieldExpr(desc, f)
		return fmt.Sprintf("%s %s %s::%s", expr, comparisonOperators[p.Operator], b.bind(v), cast), nil

	case query.OpContains, query.OpStartsWith, query.OpEndsWith:
		if p.Value == nil {
			return "FALSE", nil
		}
		v, err := schema.Coerce(schema.TypeText, p.Value)
		if err != nil {
			return "", fmt.Errorf("field %s: %w", f.Name, err)
		}
		pattern := escapeLike(v.(string))
		switch p.Operator {
		case query.OpContains:
			pattern = "%" + pattern + "%"
		case query.OpStartsWith:
			pattern += "%"
		default:
			pattern = "%" + pattern
		}
		expr := b.fieldExpr(desc, f)
		return fmt.Sprintf("%s ILIKE %s::text", expr, b.bind(pattern)), nil

	case query.OpIn:
		items, ok := p.Value.([]any)
		if !ok || len(items) == 0 {
			return "FALSE", nil
		}
		arr, err := typedArray(f.Type, items)
		if err != nil {
			return "", fmt.Errorf("field %s: %w", f.Name, err)
		}
		expr := b.fieldExpr(desc, f)
		return fmt.Sprintf("%s = ANY(%s::%s[])", expr, b.bind(arr), cast), nil
	}
	return "", fmt.Errorf("unsupported operator %q", p.Operator)
}

var comparisonOperators = map[query.Operator]string{
	query.OpGreaterThan:    ">",
	query.OpGreaterOrEqual: ">=",
	query.OpLessThan:       "<",
	query.OpLessOrEqual:    "<=",
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// typedArray converts list operands into a concretely typed slice so pgx can
// encode it as a Postgres array.
func typedArray(t schema.DataType, items []any) (any, error) {
	coerced := make([]any, len(items))
	for i, item := range items {
		v, err := schema.Coerce(t, item)
		if err != nil {
			return nil, err
		}
		coerced[i] = v
	}
	switch t {
	case schema.TypeText:
		return collect[string](coerced), nil
	case schema.TypeInteger:
		return collect[int64](coerced), nil
	case schema.TypeFloat:
		return collect[float64](coerced), nil
	case schema.TypeBoolean:
		return collect[bool](coerced), nil
	case schema.TypeDateTime:
		return collect[time.Time](coerced), nil
	case schema.TypeUUID:
		return collect[uuid.UUID](coerced), nil
	}
	return nil, fmt.Errorf("unsupported data type %q", t)
}

func collect[T any](items []any) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if v, ok := item.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

// orderClause sorts by the requested field, then by insertion sequence so
// equal keys keep a stable order across pages.
func (b *sqlBuilder) orderClause(desc *schema.Descriptor, o *query.Ordering) string {
	if o == nil {
		return "ORDER BY seq ASC"
	}
	f, ok := desc.Field(o.Field)
	if !ok || !f.IsScalar() {
		return "ORDER BY seq ASC"
	}
	expr := b.fieldExpr(desc, f)
	if o.Direction == query.Descending {
		return fmt.Sprintf("ORDER BY %s DESC NULLS LAST, seq ASC", expr)
	}
	return fmt.Sprintf("ORDER BY %s ASC NULLS FIRST, seq ASC", expr)
}

// selectStatement renders the full SELECT for q.
func (b *sqlBuilder) selectStatement(desc *schema.Descriptor, q Query) (string, error) {
	typeArg := b.bind(desc.Name())
	where, err := b.predicate(desc, q.Predicate)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString("SELECT properties FROM entity_records WHERE entity_type = ")
	sb.WriteString(typeArg)
	sb.WriteString(" AND ")
	sb.WriteString(where)
	sb.WriteString(" ")
	sb.WriteString(b.orderClause(desc, q.Ordering))
	if q.Take > 0 {
		sb.WriteString(" LIMIT ")
		sb.WriteString(b.bind(q.Take))
	}
	if q.Skip > 0 {
		sb.WriteString(" OFFSET ")
		sb.WriteString(b.bind(q.Skip))
	}
	return sb.String(), nil
}
