package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rpattn/billingapi/internal/domain"
	"github.com/rpattn/billingapi/internal/query"
	"github.com/rpattn/billingapi/internal/schema"
)

func ptr[T any](v T) *T { return &v }

func newTestStore(t *testing.T) (*MemoryStore, *schema.Registry) {
	t.Helper()
	reg, err := domain.NewRegistry()
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return NewMemoryStore(reg), reg
}

func seedPayments(t *testing.T, store Store, tenant uuid.UUID, amounts ...int64) []*domain.Payment {
	t.Helper()
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]*domain.Payment, 0, len(amounts))
	for i, amount := range amounts {
		p := &domain.Payment{
			Record:      domain.Record{Id: uuid.New(), TenantId: ptr(tenant)},
			Code:        ptr("PAY"),
			Amount:      ptr(amount),
			PaymentDate: ptr(day.AddDate(0, 0, i)),
		}
		if err := store.Add(context.Background(), "Payment", p); err != nil {
			t.Fatalf("add payment: %v", err)
		}
		out = append(out, p)
	}
	return out
}

func TestMemoryStore_FilterSortPage(t *testing.T) {
	store, _ := newTestStore(t)
	tenant := uuid.New()
	seeded := seedPayments(t, store, tenant, 50, 150, 200)
	seedPayments(t, store, uuid.New(), 500)

	q := store.Query("payment").
		Where(query.Compile(domain.PaymentSchema, tenant, []query.Criterion{{Field: "Amount", Operator: query.OpGreaterThan, Value: int64(100)}}, "")).
		OrderBy(&query.Ordering{Field: "PaymentDate", Direction: query.Descending}).
		Page(0, 10)

	got, err := store.All(context.Background(), q)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 payments, got %d", len(got))
	}
	if id := domain.PaymentSchema.IDOf(got[0]); id != seeded[2].Id {
		t.Fatalf("expected newest payment first, got %s", id)
	}
	if id := domain.PaymentSchema.IDOf(got[1]); id != seeded[1].Id {
		t.Fatalf("expected second newest payment next, got %s", id)
	}
}

func TestMemoryStore_TiesKeepInsertionOrder(t *testing.T) {
	store, _ := newTestStore(t)
	tenant := uuid.New()
	seeded := seedPayments(t, store, tenant, 100, 100, 100, 100)

	q := store.Query("Payment").
		Where(query.TenantScope(domain.PaymentSchema, tenant)).
		OrderBy(&query.Ordering{Field: "Amount", Direction: query.Descending})

	for page := 0; page < 2; page++ {
		got, err := store.All(context.Background(), q.Page(page*2, 2))
		if err != nil {
			t.Fatalf("all: %v", err)
		}
		for i, e := range got {
			if domain.PaymentSchema.IDOf(e) != seeded[page*2+i].Id {
				t.Fatalf("page %d position %d out of insertion order", page, i)
			}
		}
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store, _ := newTestStore(t)
	tenant := uuid.New()
	seeded := seedPayments(t, store, tenant, 10)

	seeded[0].Code = ptr("MUTATED")

	got, err := store.First(context.Background(), store.Query("Payment").Where(query.ByIdentifier(domain.PaymentSchema, tenant, seeded[0].Id)))
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	p := got.(*domain.Payment)
	if *p.Code != "PAY" {
		t.Fatalf("store shared memory with caller, code %q", *p.Code)
	}
	p.Amount = ptr(int64(999))

	again, _ := store.First(context.Background(), store.Query("Payment").Where(query.ByIdentifier(domain.PaymentSchema, tenant, seeded[0].Id)))
	if *again.(*domain.Payment).Amount != 10 {
		t.Fatalf("store returned shared entity")
	}
}

func TestMemoryStore_FirstNoRows(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.First(context.Background(), store.Query("Payment").Where(query.ByIdentifier(domain.PaymentSchema, uuid.New(), uuid.New())))
	if !errors.Is(err, ErrNoRows) {
		t.Fatalf("expected ErrNoRows, got %v", err)
	}
}

func TestMemoryStore_UpdateAndRemoveAreTenantScoped(t *testing.T) {
	store, _ := newTestStore(t)
	tenant := uuid.New()
	seeded := seedPayments(t, store, tenant, 10)
	ctx := context.Background()

	foreign := *seeded[0]
	foreign.TenantId = ptr(uuid.New())
	foreign.Amount = ptr(int64(1))
	if err := store.Update(ctx, "Payment", &foreign); !errors.Is(err, ErrNoRows) {
		t.Fatalf("expected cross-tenant update to miss, got %v", err)
	}
	if err := store.Remove(ctx, "Payment", &foreign); !errors.Is(err, ErrNoRows) {
		t.Fatalf("expected cross-tenant remove to miss, got %v", err)
	}

	updated := *seeded[0]
	updated.Amount = ptr(int64(75))
	if err := store.Update(ctx, "Payment", &updated); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := store.First(ctx, store.Query("Payment").Where(query.ByIdentifier(domain.PaymentSchema, tenant, updated.Id)))
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	if *got.(*domain.Payment).Amount != 75 {
		t.Fatalf("update not persisted")
	}

	if err := store.Remove(ctx, "Payment", &updated); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := store.First(ctx, store.Query("Payment").Where(query.ByIdentifier(domain.PaymentSchema, tenant, updated.Id))); !errors.Is(err, ErrNoRows) {
		t.Fatalf("expected removed record to be gone, got %v", err)
	}
}

func TestMemoryStore_AddRejectsDuplicateAndUnknownType(t *testing.T) {
	store, _ := newTestStore(t)
	seeded := seedPayments(t, store, uuid.New(), 10)

	if err := store.Add(context.Background(), "Payment", seeded[0]); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if err := store.Add(context.Background(), "Invoice", seeded[0]); !errors.Is(err, ErrUnknownEntityType) {
		t.Fatalf("expected ErrUnknownEntityType, got %v", err)
	}
	if err := store.Add(context.Background(), "Billing", seeded[0]); err == nil {
		t.Fatalf("expected payment to be rejected as a billing")
	}
}

func TestMemoryStore_AttachRelations(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	tenant := uuid.New()

	billing := &domain.Billing{Record: domain.Record{Id: uuid.New(), TenantId: ptr(tenant)}, Code: ptr("BILL-1")}
	if err := store.Add(ctx, "Billing", billing); err != nil {
		t.Fatalf("add billing: %v", err)
	}
	foreignBilling := &domain.Billing{Record: domain.Record{Id: uuid.New(), TenantId: ptr(uuid.New())}, Code: ptr("OTHER")}
	if err := store.Add(ctx, "Billing", foreignBilling); err != nil {
		t.Fatalf("add foreign billing: %v", err)
	}

	linked := &domain.Payment{Record: domain.Record{Id: uuid.New(), TenantId: ptr(tenant)}, BillingId: ptr(billing.Id)}
	crossTenant := &domain.Payment{Record: domain.Record{Id: uuid.New(), TenantId: ptr(tenant)}, BillingId: ptr(foreignBilling.Id)}
	unlinked := &domain.Payment{Record: domain.Record{Id: uuid.New(), TenantId: ptr(tenant)}}
	for _, p := range []*domain.Payment{linked, crossTenant, unlinked} {
		if err := store.Add(ctx, "Payment", p); err != nil {
			t.Fatalf("add payment: %v", err)
		}
	}

	got, err := store.All(ctx, store.Query("Payment").Where(query.TenantScope(domain.PaymentSchema, tenant)).Attach("BillingId_Billing"))
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 payments, got %d", len(got))
	}

	first := got[0].(*domain.Payment)
	if first.BillingId_Billing == nil || *first.BillingId_Billing.Code != "BILL-1" {
		t.Fatalf("expected billing to be attached, got %#v", first.BillingId_Billing)
	}
	if got[1].(*domain.Payment).BillingId_Billing != nil {
		t.Fatalf("attached a billing from another tenant")
	}
	if got[2].(*domain.Payment).BillingId_Billing != nil {
		t.Fatalf("attached a billing to an unlinked payment")
	}
}

func TestMemoryStore_RelationsAreNotPersisted(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	tenant := uuid.New()

	p := &domain.Payment{
		Record:            domain.Record{Id: uuid.New(), TenantId: ptr(tenant)},
		BillingId_Billing: &domain.Billing{Code: ptr("INLINE")},
	}
	if err := store.Add(ctx, "Payment", p); err != nil {
		t.Fatalf("add: %v", err)
	}
	got, err := store.First(ctx, store.Query("Payment").Where(query.ByIdentifier(domain.PaymentSchema, tenant, p.Id)))
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	if got.(*domain.Payment).BillingId_Billing != nil {
		t.Fatalf("relation was stored with the entity")
	}
}

type countingResolver struct {
	calls int
	inner RelationResolver
}

func (r *countingResolver) Resolve(ctx context.Context, target *schema.Descriptor, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]any, error) {
	r.calls++
	return r.inner.Resolve(ctx, target, tenantID, ids)
}

func TestMemoryStore_UsesResolverFromContext(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	tenant := uuid.New()

	billing := &domain.Billing{Record: domain.Record{Id: uuid.New(), TenantId: ptr(tenant)}}
	if err := store.Add(ctx, "Billing", billing); err != nil {
		t.Fatalf("add billing: %v", err)
	}
	for i := 0; i < 3; i++ {
		p := &domain.Payment{Record: domain.Record{Id: uuid.New(), TenantId: ptr(tenant)}, BillingId: ptr(billing.Id)}
		if err := store.Add(ctx, "Payment", p); err != nil {
			t.Fatalf("add payment: %v", err)
		}
	}

	resolver := &countingResolver{inner: NewStoreResolver(store)}
	got, err := store.All(WithResolver(ctx, resolver), store.Query("Payment").Where(query.TenantScope(domain.PaymentSchema, tenant)).Attach("BillingId_Billing"))
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if resolver.calls != 1 {
		t.Fatalf("expected one batched resolve, got %d", resolver.calls)
	}
	for _, e := range got {
		if e.(*domain.Payment).BillingId_Billing == nil {
			t.Fatalf("billing not attached")
		}
	}
}
