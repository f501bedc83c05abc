package query

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/billingapi/internal/domain"
)

func TestParsePatchDocument(t *testing.T) {
	ops, err := ParsePatchDocument([]byte(`[{"op":"replace","path":"/Amount","value":250}]`))
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, "/Amount", ops[0].Path)

	for _, body := range []string{"", "  ", "null", "[]"} {
		_, err := ParsePatchDocument([]byte(body))
		assert.ErrorIs(t, err, domain.ErrPatch, "body %q", body)
	}

	_, err = ParsePatchDocument([]byte(`{"op":"replace"}`))
	assert.ErrorIs(t, err, domain.ErrPatch)
}

func TestPlanPatch_AppliesInOrder(t *testing.T) {
	p := paymentFixture(uuid.New())[0]
	ops, err := ParsePatchDocument([]byte(`[
		{"op":"replace","path":"/Code","value":"FIRST"},
		{"op":"replace","path":"/amount","value":"75"},
		{"op":"remove","path":"/PaymentMethod"},
		{"op":"add","path":"/Code","value":"SECOND"}
	]`))
	require.NoError(t, err)

	plan, err := PlanPatch(domain.PaymentSchema, ops)
	require.NoError(t, err)
	require.NoError(t, plan.Apply(p))

	assert.Equal(t, "SECOND", *p.Code)
	assert.Equal(t, int64(75), *p.Amount)
	assert.Nil(t, p.PaymentMethod)
}

func TestPlanPatch_IsAtomic(t *testing.T) {
	p := paymentFixture(uuid.New())[0]
	before := *p

	ops := []PatchOperation{
		{Op: "replace", Path: "/Code", Value: "CHANGED"},
		{Op: "replace", Path: "/Nope", Value: "x"},
	}
	_, err := PlanPatch(domain.PaymentSchema, ops)
	require.ErrorIs(t, err, domain.ErrPatch)
	assert.Equal(t, before, *p)
	assert.Equal(t, "PAY-001", *p.Code)
}

func TestPlanPatch_Rejections(t *testing.T) {
	cases := []struct {
		name string
		op   PatchOperation
	}{
		{"identifier", PatchOperation{Op: "replace", Path: "/Id", Value: uuid.NewString()}},
		{"tenant", PatchOperation{Op: "replace", Path: "/TenantId", Value: uuid.NewString()}},
		{"audit stamp", PatchOperation{Op: "replace", Path: "/CreatedOn", Value: "2024-01-01"}},
		{"relation", PatchOperation{Op: "replace", Path: "/BillingId_Billing", Value: nil}},
		{"nested path", PatchOperation{Op: "replace", Path: "/BillingId_Billing/Code", Value: "x"}},
		{"missing slash", PatchOperation{Op: "replace", Path: "Code", Value: "x"}},
		{"root path", PatchOperation{Op: "replace", Path: "/", Value: "x"}},
		{"bad value", PatchOperation{Op: "replace", Path: "/Amount", Value: "lots"}},
		{"unsupported op", PatchOperation{Op: "move", Path: "/Code", Value: "x"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := PlanPatch(domain.PaymentSchema, []PatchOperation{tc.op})
			assert.ErrorIs(t, err, domain.ErrPatch)
		})
	}

	_, err := PlanPatch(domain.PaymentSchema, nil)
	assert.ErrorIs(t, err, domain.ErrPatch)
}
