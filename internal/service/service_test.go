package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/billingapi/internal/auth"
	"github.com/rpattn/billingapi/internal/domain"
	"github.com/rpattn/billingapi/internal/query"
	"github.com/rpattn/billingapi/internal/repository"
)

func ptr[T any](v T) *T { return &v }

var (
	created = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	later   = time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
)

type fixture struct {
	set    *Set
	store  *repository.MemoryStore
	clock  *time.Time
	tenant auth.Session
	ctx    context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg, err := domain.NewRegistry()
	require.NoError(t, err)
	store := repository.NewMemoryStore(reg)
	clock := created
	f := &fixture{
		store:  store,
		clock:  &clock,
		tenant: auth.Session{TenantID: uuid.New(), UserID: uuid.New(), Entitlements: []string{auth.Wildcard}},
	}
	f.set = NewSet(query.NewEngine(reg, 100), store, WithClock(func() time.Time { return *f.clock }))
	f.ctx = auth.ContextWithSession(context.Background(), f.tenant)
	return f
}

func (f *fixture) payments(t *testing.T) *Service {
	t.Helper()
	svc, ok := f.set.Lookup("payment")
	require.True(t, ok)
	return svc
}

func (f *fixture) createPayments(t *testing.T, amounts ...int64) []uuid.UUID {
	t.Helper()
	svc := f.payments(t)
	ids := make([]uuid.UUID, 0, len(amounts))
	for i, amount := range amounts {
		id, err := svc.Create(f.ctx, &domain.Payment{
			Code:          ptr("PAY-00" + string(rune('1'+i))),
			Amount:        ptr(amount),
			PaymentDate:   ptr(time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC)),
			PaymentMethod: ptr("Card"),
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func TestCreate_StampsTenantAndAudit(t *testing.T) {
	f := newFixture(t)
	svc := f.payments(t)

	foreign := uuid.New()
	id, err := svc.Create(f.ctx, &domain.Payment{
		Record: domain.Record{TenantId: &foreign, UpdatedOn: ptr(later)},
		Code:   ptr("PAY-1"),
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)

	got, err := f.store.First(context.Background(), f.store.Query("Payment").Where(query.ByIdentifier(domain.PaymentSchema, f.tenant.TenantID, id)))
	require.NoError(t, err)
	p := got.(*domain.Payment)
	assert.Equal(t, f.tenant.TenantID, *p.TenantId)
	assert.Equal(t, created, *p.CreatedOn)
	assert.Equal(t, f.tenant.UserID, *p.CreatedBy)
	assert.Nil(t, p.UpdatedOn)
}

func TestCreate_KeepsCallerIdentifier(t *testing.T) {
	f := newFixture(t)
	want := uuid.New()
	id, err := f.payments(t).Create(f.ctx, &domain.Payment{Record: domain.Record{Id: want}})
	require.NoError(t, err)
	assert.Equal(t, want, id)
}

func TestCreate_RequiresSession(t *testing.T) {
	f := newFixture(t)
	_, err := f.payments(t).Create(context.Background(), &domain.Payment{})
	assert.True(t, errors.Is(err, domain.ErrUnauthenticated))
}

func TestCreate_RequiresEntitlement(t *testing.T) {
	f := newFixture(t)
	ctx := auth.ContextWithSession(context.Background(), auth.Session{TenantID: f.tenant.TenantID, Entitlements: []string{"Payment.Read"}})
	_, err := f.payments(t).Create(ctx, &domain.Payment{})
	assert.True(t, errors.Is(err, domain.ErrForbidden))
}

func TestGet_FiltersSortsAndProjects(t *testing.T) {
	f := newFixture(t)
	ids := f.createPayments(t, 50, 150, 200)

	other := auth.ContextWithSession(context.Background(), auth.Session{TenantID: uuid.New(), Entitlements: []string{auth.Wildcard}})
	_, err := f.payments(t).Create(other, &domain.Payment{Amount: ptr(int64(999))})
	require.NoError(t, err)

	records, err := f.payments(t).Get(f.ctx, query.ListParams{
		Filters:    `[{"PropertyName":"Amount","Operator":"GreaterThan","Value":100}]`,
		PageNumber: 1,
		PageSize:   10,
		SortField:  "PaymentDate",
		SortOrder:  "desc",
		Fields:     "Code,Amount",
	})
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, query.Record{"Id": ids[2], "Code": "PAY-003", "Amount": int64(200)}, records[0])
	assert.Equal(t, query.Record{"Id": ids[1], "Code": "PAY-002", "Amount": int64(150)}, records[1])
}

func TestGet_RejectsBeforeQuerying(t *testing.T) {
	f := newFixture(t)
	f.createPayments(t, 10)
	svc := f.payments(t)

	_, err := svc.Get(f.ctx, query.ListParams{PageNumber: 0, PageSize: 10})
	assert.True(t, errors.Is(err, domain.ErrInvalidPage))

	_, err = svc.Get(f.ctx, query.ListParams{PageNumber: 1, PageSize: 10, Filters: `[{"PropertyName":"Nope","Operator":"Equal","Value":1}]`})
	assert.True(t, errors.Is(err, domain.ErrInvalidFilter))

	_, err = svc.Get(f.ctx, query.ListParams{PageNumber: 1, PageSize: 10, SortField: "Amount", SortOrder: "sideways"})
	assert.True(t, errors.Is(err, domain.ErrInvalidSort))

	_, err = svc.Get(f.ctx, query.ListParams{PageNumber: 1, PageSize: 101})
	assert.True(t, errors.Is(err, domain.ErrInvalidPage))
}

func TestGetByID_ProjectsNestedRelation(t *testing.T) {
	f := newFixture(t)
	billings, ok := f.set.Lookup("Billing")
	require.True(t, ok)
	billingID, err := billings.Create(f.ctx, &domain.Billing{Code: ptr("BILL-7")})
	require.NoError(t, err)

	paymentID, err := f.payments(t).Create(f.ctx, &domain.Payment{Code: ptr("PAY-9"), BillingId: &billingID})
	require.NoError(t, err)

	rec, err := f.payments(t).GetByID(f.ctx, paymentID, "Code,BillingId_Billing.Code")
	require.NoError(t, err)
	assert.Equal(t, query.Record{
		"Id":                paymentID,
		"Code":              "PAY-9",
		"BillingId_Billing": query.Record{"Code": "BILL-7"},
	}, rec)
}

func TestGetByID_EmptyFieldsYieldsIdentifier(t *testing.T) {
	f := newFixture(t)
	ids := f.createPayments(t, 10)

	rec, err := f.payments(t).GetByID(f.ctx, ids[0], "")
	require.NoError(t, err)
	assert.Equal(t, query.Record{"Id": ids[0]}, rec)
}

func TestGetByID_OtherTenantIsNotFound(t *testing.T) {
	f := newFixture(t)
	ids := f.createPayments(t, 10)

	other := auth.ContextWithSession(context.Background(), auth.Session{TenantID: uuid.New(), Entitlements: []string{auth.Wildcard}})
	_, err := f.payments(t).GetByID(other, ids[0], "Code")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestUpdate_CarriesCreationStamps(t *testing.T) {
	f := newFixture(t)
	ids := f.createPayments(t, 10)
	*f.clock = later

	editor := auth.Session{TenantID: f.tenant.TenantID, UserID: uuid.New(), Entitlements: []string{auth.Wildcard}}
	ctx := auth.ContextWithSession(context.Background(), editor)
	err := f.payments(t).Update(ctx, ids[0], &domain.Payment{
		Record: domain.Record{Id: ids[0], CreatedOn: ptr(later)},
		Code:   ptr("EDITED"),
	})
	require.NoError(t, err)

	got, err := f.store.First(context.Background(), f.store.Query("Payment").Where(query.ByIdentifier(domain.PaymentSchema, f.tenant.TenantID, ids[0])))
	require.NoError(t, err)
	p := got.(*domain.Payment)
	assert.Equal(t, "EDITED", *p.Code)
	assert.Nil(t, p.Amount)
	assert.Equal(t, created, *p.CreatedOn)
	assert.Equal(t, f.tenant.UserID, *p.CreatedBy)
	assert.Equal(t, later, *p.UpdatedOn)
	assert.Equal(t, editor.UserID, *p.UpdatedBy)
	assert.Equal(t, f.tenant.TenantID, *p.TenantId)
}

func TestUpdate_MismatchedIdentifier(t *testing.T) {
	f := newFixture(t)
	ids := f.createPayments(t, 10)

	err := f.payments(t).Update(f.ctx, ids[0], &domain.Payment{Record: domain.Record{Id: uuid.New()}})
	assert.True(t, errors.Is(err, domain.ErrMismatchedIdentifier))

	err = f.payments(t).Update(f.ctx, uuid.New(), &domain.Payment{Record: domain.Record{Id: ids[0]}})
	assert.True(t, errors.Is(err, domain.ErrMismatchedIdentifier))
}

func TestUpdate_MissingRecord(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	err := f.payments(t).Update(f.ctx, id, &domain.Payment{Record: domain.Record{Id: id}})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestPatch_AppliesInOrderAndStamps(t *testing.T) {
	f := newFixture(t)
	ids := f.createPayments(t, 10)
	*f.clock = later

	doc := []byte(`[
		{"op":"replace","path":"/Code","value":"A"},
		{"op":"replace","path":"/Code","value":"B"},
		{"op":"remove","path":"/PaymentMethod"},
		{"op":"add","path":"/Amount","value":"42"}
	]`)
	require.NoError(t, f.payments(t).Patch(f.ctx, ids[0], doc))

	rec, err := f.payments(t).GetByID(f.ctx, ids[0], "Code,PaymentMethod,Amount,UpdatedOn")
	require.NoError(t, err)
	assert.Equal(t, "B", rec["Code"])
	assert.Nil(t, rec["PaymentMethod"])
	assert.Equal(t, int64(42), rec["Amount"])
	assert.Equal(t, later, rec["UpdatedOn"])
}

func TestPatch_IsAtomic(t *testing.T) {
	f := newFixture(t)
	ids := f.createPayments(t, 10)

	doc := []byte(`[
		{"op":"replace","path":"/Code","value":"CHANGED"},
		{"op":"replace","path":"/DoesNotExist","value":1}
	]`)
	err := f.payments(t).Patch(f.ctx, ids[0], doc)
	assert.True(t, errors.Is(err, domain.ErrPatch))

	rec, err := f.payments(t).GetByID(f.ctx, ids[0], "Code,UpdatedOn")
	require.NoError(t, err)
	assert.Equal(t, "PAY-001", rec["Code"])
	assert.Nil(t, rec["UpdatedOn"])
}

func TestPatch_EmptyDocumentAndMissingRecord(t *testing.T) {
	f := newFixture(t)
	err := f.payments(t).Patch(f.ctx, uuid.New(), nil)
	assert.True(t, errors.Is(err, domain.ErrPatch))

	err = f.payments(t).Patch(f.ctx, uuid.New(), []byte(`[{"op":"replace","path":"/Code","value":"X"}]`))
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestPatch_MissingRecordBeforePathChecks(t *testing.T) {
	f := newFixture(t)
	ids := f.createPayments(t, 10)
	doc := []byte(`[{"op":"replace","path":"/Nope","value":1}]`)

	err := f.payments(t).Patch(f.ctx, uuid.New(), doc)
	assert.True(t, errors.Is(err, domain.ErrNotFound), "got %v", err)

	other := auth.ContextWithSession(context.Background(), auth.Session{TenantID: uuid.New(), Entitlements: []string{auth.Wildcard}})
	err = f.payments(t).Patch(other, ids[0], doc)
	assert.True(t, errors.Is(err, domain.ErrNotFound), "got %v", err)

	err = f.payments(t).Patch(f.ctx, ids[0], doc)
	assert.True(t, errors.Is(err, domain.ErrPatch), "got %v", err)
}

func TestPatch_RejectsOutOfRangeInteger(t *testing.T) {
	f := newFixture(t)
	ids := f.createPayments(t, 10)

	err := f.payments(t).Patch(f.ctx, ids[0], []byte(`[{"op":"replace","path":"/Amount","value":1e30}]`))
	assert.True(t, errors.Is(err, domain.ErrPatch), "got %v", err)

	rec, err := f.payments(t).GetByID(f.ctx, ids[0], "Amount")
	require.NoError(t, err)
	assert.Equal(t, int64(10), rec["Amount"])
}

func TestPatch_ReadOnlyFields(t *testing.T) {
	f := newFixture(t)
	ids := f.createPayments(t, 10)

	for _, path := range []string{"/Id", "/TenantId", "/CreatedOn", "/BillingId_Billing"} {
		err := f.payments(t).Patch(f.ctx, ids[0], []byte(`[{"op":"replace","path":"`+path+`","value":null}]`))
		assert.Truef(t, errors.Is(err, domain.ErrPatch), "path %s: %v", path, err)
	}
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ids := f.createPayments(t, 10, 20)

	require.NoError(t, f.payments(t).Delete(f.ctx, ids[0]))
	_, err := f.payments(t).GetByID(f.ctx, ids[0], "")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	assert.True(t, errors.Is(f.payments(t).Delete(f.ctx, ids[0]), domain.ErrNotFound))

	rec, err := f.payments(t).GetByID(f.ctx, ids[1], "Amount")
	require.NoError(t, err)
	assert.Equal(t, int64(20), rec["Amount"])
}

func TestScan_WalksEveryBatch(t *testing.T) {
	f := newFixture(t)
	f.createPayments(t, 1, 2, 3, 4, 5)

	var amounts []any
	var batches int
	err := f.payments(t).Scan(f.ctx, query.ListParams{SortField: "Amount", SortOrder: "desc", Fields: "Amount"}, 2, 0,
		func(sel query.Selection, records []query.Record) error {
			batches++
			assert.Equal(t, query.Selection{"Amount"}, sel)
			for _, r := range records {
				amounts = append(amounts, r["Amount"])
			}
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, 3, batches)
	assert.Equal(t, []any{int64(5), int64(4), int64(3), int64(2), int64(1)}, amounts)
}

func TestScan_StopsAtLimit(t *testing.T) {
	f := newFixture(t)
	f.createPayments(t, 1, 2, 3, 4, 5)

	var seen int
	err := f.payments(t).Scan(f.ctx, query.ListParams{}, 2, 3, func(_ query.Selection, records []query.Record) error {
		seen += len(records)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, seen)
}

func TestDecode(t *testing.T) {
	f := newFixture(t)
	svc := f.payments(t)

	entity, err := svc.Decode([]byte(`{"Code":"PAY-1","Amount":12}`))
	require.NoError(t, err)
	assert.Equal(t, int64(12), *entity.(*domain.Payment).Amount)

	_, err = svc.Decode([]byte(`{"Code":`))
	assert.True(t, errors.Is(err, domain.ErrInvalidRequest))
	_, err = svc.Decode(nil)
	assert.True(t, errors.Is(err, domain.ErrInvalidRequest))
}

func TestSet_CoversRegistry(t *testing.T) {
	f := newFixture(t)
	assert.Len(t, f.set.All(), 15)
	_, ok := f.set.Lookup("explanationofbenefits")
	assert.True(t, ok)
	_, ok = f.set.Lookup("invoice")
	assert.False(t, ok)
}
