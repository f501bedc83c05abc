package query

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/billingapi/internal/domain"
	"github.com/rpattn/billingapi/internal/schema"
)

func ptr[T any](v T) *T { return &v }

func testRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	reg, err := domain.NewRegistry()
	require.NoError(t, err)
	return reg
}

func newPayment(tenant uuid.UUID, code string, amount int64, paid time.Time) *domain.Payment {
	return &domain.Payment{
		Record:        domain.Record{Id: uuid.New(), TenantId: ptr(tenant)},
		Code:          ptr(code),
		Amount:        ptr(amount),
		PaymentDate:   ptr(paid),
		PaymentMethod: ptr("Card"),
	}
}

// paymentFixture returns three payments of 50, 150 and 200 paid on
// consecutive days in that order.
func paymentFixture(tenant uuid.UUID) []*domain.Payment {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []*domain.Payment{
		newPayment(tenant, "PAY-001", 50, day),
		newPayment(tenant, "PAY-002", 150, day.AddDate(0, 0, 1)),
		newPayment(tenant, "PAY-003", 200, day.AddDate(0, 0, 2)),
	}
}

func asAny[E any](items []*E) []any {
	out := make([]any, len(items))
	for i, it := range items {
		out[i] = it
	}
	return out
}

// run executes plan the way an in-memory store would.
func run(desc *schema.Descriptor, plan ListPlan, entities []any) []any {
	var matched []any
	for _, e := range entities {
		if Evaluate(desc, plan.Predicate, e) {
			matched = append(matched, e)
		}
	}
	Sort(desc, plan.Ordering, matched)
	if plan.Skip >= len(matched) {
		return nil
	}
	end := min(plan.Skip+plan.Take, len(matched))
	return matched[plan.Skip:end]
}
