package query

import (
	"bytes"
	"cmp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rpattn/billingapi/internal/schema"
)

// Evaluate interprets p against entity. Comparisons naming undeclared or
// relation fields never match.
func Evaluate(desc *schema.Descriptor, p Predicate, entity any) bool {
	switch p.Kind {
	case KindTrue:
		return true
	case KindFalse:
		return false
	case KindAnd:
		for _, c := range p.Children {
			if !Evaluate(desc, c, entity) {
				return false
			}
		}
		return true
	case KindOr:
		for _, c := range p.Children {
			if Evaluate(desc, c, entity) {
				return true
			}
		}
		return false
	case KindCompare:
		field, ok := desc.Field(p.Field)
		if !ok || !field.IsScalar() {
			return false
		}
		return match(field.Type, p.Operator, field.Value(entity), p.Value)
	default:
		return false
	}
}

func match(t schema.DataType, op Operator, actual, operand any) bool {
	switch op {
	case OpEqual:
		return equal(t, actual, operand)
	case OpNotEqual:
		return !equal(t, actual, operand)
	case OpIn:
		items, ok := operand.([]any)
		if !ok || actual == nil {
			return false
		}
		for _, item := range items {
			if equal(t, actual, item) {
				return true
			}
		}
		return false
	}

	if actual == nil || operand == nil {
		return false
	}
	if op.textual() {
		a, aok := actual.(string)
		b, err := schema.Coerce(schema.TypeText, operand)
		if !aok || err != nil {
			return false
		}
		a, needle := strings.ToLower(a), strings.ToLower(b.(string))
		switch op {
		case OpContains:
			return strings.Contains(a, needle)
		case OpStartsWith:
			return strings.HasPrefix(a, needle)
		default:
			return strings.HasSuffix(a, needle)
		}
	}

	c, ok := compareTyped(t, actual, operand)
	if !ok {
		return false
	}
	switch op {
	case OpGreaterThan:
		return c > 0
	case OpGreaterOrEqual:
		return c >= 0
	case OpLessThan:
		return c < 0
	case OpLessOrEqual:
		return c <= 0
	}
	return false
}

func equal(t schema.DataType, actual, operand any) bool {
	if actual == nil || operand == nil {
		return actual == nil && operand == nil
	}
	c, ok := compareTyped(t, actual, operand)
	return ok && c == 0
}

// compareTyped coerces operand to t so predicates that went through a JSON
// round trip still compare against canonical field values.
func compareTyped(t schema.DataType, actual, operand any) (int, bool) {
	coerced, err := schema.Coerce(t, operand)
	if err != nil {
		return 0, false
	}
	return compareValues(actual, coerced)
}

// compareValues orders two non-nil canonical values of the same type.
func compareValues(a, b any) (int, bool) {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return cmp.Compare(av, bv), ok
	case int64:
		bv, ok := b.(int64)
		return cmp.Compare(av, bv), ok
	case float64:
		bv, ok := b.(float64)
		return cmp.Compare(av, bv), ok
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !av:
			return -1, true
		default:
			return 1, true
		}
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return av.Compare(bv), true
	case uuid.UUID:
		bv, ok := b.(uuid.UUID)
		if !ok {
			return 0, false
		}
		return bytes.Compare(av[:], bv[:]), true
	}
	return 0, false
}
