package query

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/billingapi/internal/domain"
)

func TestParseFilters(t *testing.T) {
	criteria, err := ParseFilters(`[{"PropertyName":"Amount","Operator":"GreaterThan","Value":"100"}]`)
	require.NoError(t, err)
	require.Len(t, criteria, 1)
	assert.Equal(t, "Amount", criteria[0].PropertyName)
	assert.Equal(t, "GreaterThan", criteria[0].Operator)
	assert.Equal(t, "100", criteria[0].Value)

	criteria, err = ParseFilters("   ")
	require.NoError(t, err)
	assert.Empty(t, criteria)

	_, err = ParseFilters(`[{"PropertyName":`)
	assert.ErrorIs(t, err, domain.ErrInvalidFilter)

	criteria, err = ParseFilters(`[{"propertyName":"Amount","operator":"equal","value":5}]`)
	require.NoError(t, err)
	assert.Equal(t, json.Number("5"), criteria[0].Value)
}

func TestValidateCriteria_CoercesValues(t *testing.T) {
	desc := domain.PaymentSchema

	got, err := ValidateCriteria(desc, []FilterCriterion{
		{PropertyName: "amount", Operator: "greaterthan", Value: "100"},
		{PropertyName: "PaymentDate", Operator: "LessOrEqual", Value: "2024-01-02"},
		{PropertyName: "Code", Operator: "In", Value: []any{"PAY-001", "PAY-002"}},
		{PropertyName: "ReferenceNumber", Operator: "Equal", Value: nil},
	})
	require.NoError(t, err)
	require.Len(t, got, 4)

	assert.Equal(t, Criterion{Field: "Amount", Operator: OpGreaterThan, Value: int64(100)}, got[0])
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), got[1].Value)
	assert.Equal(t, []any{"PAY-001", "PAY-002"}, got[2].Value)
	assert.Nil(t, got[3].Value)
}

func TestValidateCriteria_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		in     FilterCriterion
		reason string
	}{
		{name: "unknown field", in: FilterCriterion{PropertyName: "Nope", Operator: "Equal", Value: "x"}, reason: "unknown field"},
		{name: "relation field", in: FilterCriterion{PropertyName: "BillingId_Billing", Operator: "Equal", Value: "x"}, reason: "relation filtering not supported"},
		{name: "contains on integer", in: FilterCriterion{PropertyName: "Amount", Operator: "Contains", Value: "1"}, reason: "incompatible operator"},
		{name: "range on text", in: FilterCriterion{PropertyName: "Code", Operator: "GreaterThan", Value: "A"}, reason: "incompatible operator"},
		{name: "in without list", in: FilterCriterion{PropertyName: "Code", Operator: "In", Value: "A"}, reason: "incompatible operator"},
		{name: "list without in", in: FilterCriterion{PropertyName: "Code", Operator: "Equal", Value: []any{"A"}}, reason: "incompatible operator"},
		{name: "null range", in: FilterCriterion{PropertyName: "Amount", Operator: "LessThan", Value: nil}, reason: "incompatible operator"},
		{name: "unparsable integer", in: FilterCriterion{PropertyName: "Amount", Operator: "Equal", Value: "lots"}, reason: "unparsable value"},
		{name: "fractional integer", in: FilterCriterion{PropertyName: "Amount", Operator: "Equal", Value: "1.5"}, reason: "unparsable value"},
		{name: "integer overflow", in: FilterCriterion{PropertyName: "Amount", Operator: "GreaterThan", Value: "1e30"}, reason: "unparsable value"},
		{name: "integer overflow digits", in: FilterCriterion{PropertyName: "Amount", Operator: "Equal", Value: "9223372036854775808"}, reason: "unparsable value"},
		{name: "integer overflow number", in: FilterCriterion{PropertyName: "Amount", Operator: "LessThan", Value: 1e30}, reason: "unparsable value"},
		{name: "unparsable list item", in: FilterCriterion{PropertyName: "BillingId", Operator: "In", Value: []any{"nope"}}, reason: "unparsable value"},
		{name: "unknown operator", in: FilterCriterion{PropertyName: "Code", Operator: "Like", Value: "A"}, reason: "unsupported operator"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidateCriteria(domain.PaymentSchema, []FilterCriterion{tc.in})
			require.ErrorIs(t, err, domain.ErrInvalidFilter)
			assert.Contains(t, err.Error(), tc.reason)
		})
	}
}

func TestValidateCriteria_RejectsNonFiniteFloat(t *testing.T) {
	for _, raw := range []any{"NaN", "Inf", "-Inf"} {
		_, err := ValidateCriteria(domain.BillableItemSchema, []FilterCriterion{
			{PropertyName: "UnitPrice", Operator: "GreaterThan", Value: raw},
		})
		require.ErrorIs(t, err, domain.ErrInvalidFilter, "value %v", raw)
	}
}

func TestParseOperator_Aliases(t *testing.T) {
	op, ok := ParseOperator("GreaterThanOrEqual")
	require.True(t, ok)
	assert.Equal(t, OpGreaterOrEqual, op)

	op, ok = ParseOperator(" lessorequal ")
	require.True(t, ok)
	assert.Equal(t, OpLessOrEqual, op)

	_, ok = ParseOperator("Between")
	assert.False(t, ok)
}
