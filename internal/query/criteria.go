package query

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rpattn/billingapi/internal/domain"
	"github.com/rpattn/billingapi/internal/schema"
)

// Operator names a comparison supported by filter criteria.
type Operator string

const (
	OpEqual          Operator = "Equal"
	OpNotEqual       Operator = "NotEqual"
	OpGreaterThan    Operator = "GreaterThan"
	OpGreaterOrEqual Operator = "GreaterOrEqual"
	OpLessThan       Operator = "LessThan"
	OpLessOrEqual    Operator = "LessOrEqual"
	OpContains       Operator = "Contains"
	OpStartsWith     Operator = "StartsWith"
	OpEndsWith       Operator = "EndsWith"
	OpIn             Operator = "In"
)

var operatorsByName = map[string]Operator{
	"equal":              OpEqual,
	"notequal":           OpNotEqual,
	"greaterthan":        OpGreaterThan,
	"greaterorequal":     OpGreaterOrEqual,
	"greaterthanorequal": OpGreaterOrEqual,
	"lessthan":           OpLessThan,
	"lessorequal":        OpLessOrEqual,
	"lessthanorequal":    OpLessOrEqual,
	"contains":           OpContains,
	"startswith":         OpStartsWith,
	"endswith":           OpEndsWith,
	"in":                 OpIn,
}

// ParseOperator resolves an operator name, ignoring case.
func ParseOperator(raw string) (Operator, bool) {
	op, ok := operatorsByName[strings.ToLower(strings.TrimSpace(raw))]
	return op, ok
}

func (op Operator) textual() bool {
	return op == OpContains || op == OpStartsWith || op == OpEndsWith
}

func (op Operator) ranged() bool {
	switch op {
	case OpGreaterThan, OpGreaterOrEqual, OpLessThan, OpLessOrEqual:
		return true
	}
	return false
}

// FilterCriterion is one raw filter condition as supplied by the caller.
type FilterCriterion struct {
	PropertyName string `json:"PropertyName"`
	Operator     string `json:"Operator"`
	Value        any    `json:"Value"`
}

// Criterion is a filter condition that has been checked against a descriptor
// and whose value has been coerced to the field's declared type.
type Criterion struct {
	Field    string
	Operator Operator
	Value    any
}

// ParseFilters decodes the JSON array carried in the filters parameter.
// An empty parameter yields no criteria.
func ParseFilters(raw string) ([]FilterCriterion, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(trimmed)))
	dec.UseNumber()

	var criteria []FilterCriterion
	if err := dec.Decode(&criteria); err != nil {
		return nil, domain.InvalidFilter("", fmt.Sprintf("malformed filters: %v", err))
	}
	return criteria, nil
}

// ValidateCriteria checks each raw criterion against desc and coerces its value.
// The first failure aborts validation.
func ValidateCriteria(desc *schema.Descriptor, raw []FilterCriterion) ([]Criterion, error) {
	out := make([]Criterion, 0, len(raw))
	for _, rc := range raw {
		c, err := validateCriterion(desc, rc)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func validateCriterion(desc *schema.Descriptor, rc FilterCriterion) (Criterion, error) {
	name := strings.TrimSpace(rc.PropertyName)
	if name == "" {
		return Criterion{}, domain.InvalidFilter("", "property name is required")
	}
	field, ok := desc.Field(name)
	if !ok {
		return Criterion{}, domain.InvalidFilter(name, "unknown field")
	}
	if field.IsRelation() {
		return Criterion{}, domain.InvalidFilter(field.Name, "relation filtering not supported")
	}
	if !field.Filterable {
		return Criterion{}, domain.InvalidFilter(field.Name, "field is not filterable")
	}

	op, ok := ParseOperator(rc.Operator)
	if !ok {
		return Criterion{}, domain.InvalidFilter(field.Name, fmt.Sprintf("unsupported operator %q", rc.Operator))
	}
	if !compatible(field.Type, op) {
		return Criterion{}, domain.InvalidFilter(field.Name, "incompatible operator")
	}

	list, isList := rc.Value.([]any)
	if op == OpIn {
		if !isList {
			return Criterion{}, domain.InvalidFilter(field.Name, "incompatible operator")
		}
		values := make([]any, 0, len(list))
		for _, item := range list {
			if item == nil {
				return Criterion{}, domain.InvalidFilter(field.Name, "unparsable value: null is not allowed in a list")
			}
			v, err := schema.Coerce(field.Type, item)
			if err != nil {
				return Criterion{}, domain.InvalidFilter(field.Name, fmt.Sprintf("unparsable value: %v", err))
			}
			values = append(values, v)
		}
		return Criterion{Field: field.Name, Operator: op, Value: values}, nil
	}
	if isList {
		return Criterion{}, domain.InvalidFilter(field.Name, "incompatible operator")
	}

	if rc.Value == nil {
		if op != OpEqual && op != OpNotEqual {
			return Criterion{}, domain.InvalidFilter(field.Name, "incompatible operator")
		}
		return Criterion{Field: field.Name, Operator: op}, nil
	}

	v, err := schema.Coerce(field.Type, rc.Value)
	if err != nil {
		return Criterion{}, domain.InvalidFilter(field.Name, fmt.Sprintf("unparsable value: %v", err))
	}
	return Criterion{Field: field.Name, Operator: op, Value: v}, nil
}

func compatible(t schema.DataType, op Operator) bool {
	switch {
	case op.textual():
		return t == schema.TypeText
	case op.ranged():
		return t.Ordered()
	default:
		return true
	}
}
