package finance

import (
	"context"
	"testing"
	"time"

	"github.com/freteflow/backend/internal/domain/finance"
	"github.com/freteflow/backend/internal/domain/shared"
	"github.com/freteflow/backend/internal/domain/shared/valueobject"
	"github.com/freteflow/backend/internal/domain/tax"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakePayableRepo is an in-memory AccountPayableRepository
type fakePayableRepo struct {
	payables map[uuid.UUID]*finance.AccountPayable
	saveErr  error
}

func newFakePayableRepo() *fakePayableRepo {
	return &fakePayableRepo{payables: make(map[uuid.UUID]*finance.AccountPayable)}
}

func (r *fakePayableRepo) FindByID(_ context.Context, organizationID, branchID, id uuid.UUID) (*finance.AccountPayable, error) {
	ap, ok := r.payables[id]
	if !ok || ap.OrganizationID != organizationID || ap.BranchID != branchID {
		return nil, nil
	}
	return ap, nil
}

func (r *fakePayableRepo) FindByDocumentNumber(_ context.Context, organizationID, branchID uuid.UUID, documentNumber string) (*finance.AccountPayable, error) {
	for _, ap := range r.payables {
		if ap.OrganizationID == organizationID && ap.BranchID == branchID && ap.DocumentNumber == documentNumber {
			return ap, nil
		}
	}
	return nil, nil
}

func (r *fakePayableRepo) FindAll(_ context.Context, organizationID, branchID uuid.UUID, _ finance.AccountPayableFilter) ([]finance.AccountPayable, error) {
	result := make([]finance.AccountPayable, 0)
	for _, ap := range r.payables {
		if ap.OrganizationID == organizationID && ap.BranchID == branchID {
			result = append(result, *ap)
		}
	}
	return result, nil
}

func (r *fakePayableRepo) FindOverdue(_ context.Context, organizationID, branchID uuid.UUID, reference time.Time) ([]finance.AccountPayable, error) {
	result := make([]finance.AccountPayable, 0)
	for _, ap := range r.payables {
		if ap.OrganizationID == organizationID && ap.BranchID == branchID && ap.Terms.IsOverdue(reference) {
			result = append(result, *ap)
		}
	}
	return result, nil
}

func (r *fakePayableRepo) Save(_ context.Context, payable *finance.AccountPayable) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.payables[payable.ID] = payable
	return nil
}

func (r *fakePayableRepo) SaveWithLock(ctx context.Context, payable *finance.AccountPayable) error {
	return r.Save(ctx, payable)
}

func (r *fakePayableRepo) Count(_ context.Context, organizationID, branchID uuid.UUID, _ finance.AccountPayableFilter) (int64, error) {
	var count int64
	for _, ap := range r.payables {
		if ap.OrganizationID == organizationID && ap.BranchID == branchID {
			count++
		}
	}
	return count, nil
}

// fakeReceivableRepo is an in-memory AccountReceivableRepository
type fakeReceivableRepo struct {
	receivables map[uuid.UUID]*finance.AccountReceivable
}

func newFakeReceivableRepo() *fakeReceivableRepo {
	return &fakeReceivableRepo{receivables: make(map[uuid.UUID]*finance.AccountReceivable)}
}

func (r *fakeReceivableRepo) FindByID(_ context.Context, organizationID, branchID, id uuid.UUID) (*finance.AccountReceivable, error) {
	ar, ok := r.receivables[id]
	if !ok || ar.OrganizationID != organizationID || ar.BranchID != branchID {
		return nil, nil
	}
	return ar, nil
}

func (r *fakeReceivableRepo) FindByDocumentNumber(_ context.Context, organizationID, branchID uuid.UUID, documentNumber string) (*finance.AccountReceivable, error) {
	for _, ar := range r.receivables {
		if ar.OrganizationID == organizationID && ar.BranchID == branchID && ar.DocumentNumber == documentNumber {
			return ar, nil
		}
	}
	return nil, nil
}

func (r *fakeReceivableRepo) FindAll(_ context.Context, organizationID, branchID uuid.UUID, _ finance.AccountReceivableFilter) ([]finance.AccountReceivable, error) {
	result := make([]finance.AccountReceivable, 0)
	for _, ar := range r.receivables {
		if ar.OrganizationID == organizationID && ar.BranchID == branchID {
			result = append(result, *ar)
		}
	}
	return result, nil
}

func (r *fakeReceivableRepo) FindOverdue(_ context.Context, organizationID, branchID uuid.UUID, reference time.Time) ([]finance.AccountReceivable, error) {
	result := make([]finance.AccountReceivable, 0)
	for _, ar := range r.receivables {
		if ar.OrganizationID != organizationID || ar.BranchID != branchID {
			continue
		}
		if ar.Status != finance.ReceivableStatusOpen && ar.Status != finance.ReceivableStatusPartial {
			continue
		}
		if ar.Terms.IsOverdue(reference) {
			result = append(result, *ar)
		}
	}
	return result, nil
}

func (r *fakeReceivableRepo) FindOverdueScopes(_ context.Context, reference time.Time) ([]finance.BranchScope, error) {
	seen := make(map[finance.BranchScope]bool)
	scopes := make([]finance.BranchScope, 0)
	for _, ar := range r.receivables {
		if ar.Status != finance.ReceivableStatusOpen && ar.Status != finance.ReceivableStatusPartial {
			continue
		}
		if !ar.Terms.IsOverdue(reference) {
			continue
		}
		scope := finance.BranchScope{OrganizationID: ar.OrganizationID, BranchID: ar.BranchID}
		if !seen[scope] {
			seen[scope] = true
			scopes = append(scopes, scope)
		}
	}
	return scopes, nil
}

func (r *fakeReceivableRepo) Save(_ context.Context, receivable *finance.AccountReceivable) error {
	r.receivables[receivable.ID] = receivable
	return nil
}

func (r *fakeReceivableRepo) SaveWithLock(ctx context.Context, receivable *finance.AccountReceivable) error {
	return r.Save(ctx, receivable)
}

func (r *fakeReceivableRepo) Count(_ context.Context, organizationID, branchID uuid.UUID, _ finance.AccountReceivableFilter) (int64, error) {
	var count int64
	for _, ar := range r.receivables {
		if ar.OrganizationID == organizationID && ar.BranchID == branchID {
			count++
		}
	}
	return count, nil
}

// fakeOutboxRepo captures saved outbox entries
type fakeOutboxRepo struct {
	entries []*shared.OutboxEntry
}

func (r *fakeOutboxRepo) Save(_ context.Context, entries ...*shared.OutboxEntry) error {
	r.entries = append(r.entries, entries...)
	return nil
}

func (r *fakeOutboxRepo) FindPending(_ context.Context, limit int) ([]*shared.OutboxEntry, error) {
	if limit > len(r.entries) {
		limit = len(r.entries)
	}
	return r.entries[:limit], nil
}

func (r *fakeOutboxRepo) FindRetryable(_ context.Context, _ time.Time, _ int) ([]*shared.OutboxEntry, error) {
	return nil, nil
}

func (r *fakeOutboxRepo) Update(_ context.Context, _ *shared.OutboxEntry) error { return nil }

func (r *fakeOutboxRepo) DeleteOlderThan(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func (r *fakeOutboxRepo) eventTypes() []string {
	types := make([]string, len(r.entries))
	for i, e := range r.entries {
		types[i] = e.EventType
	}
	return types
}

func mustBRL(t *testing.T, amount string) valueobject.Money {
	t.Helper()
	m, err := valueobject.NewMoneyBRLFromString(amount)
	require.NoError(t, err)
	return m
}

type serviceFixture struct {
	service        *LedgerService
	payableRepo    *fakePayableRepo
	receivableRepo *fakeReceivableRepo
	outboxRepo     *fakeOutboxRepo
	scope          Scope
}

func newServiceFixture() *serviceFixture {
	payableRepo := newFakePayableRepo()
	receivableRepo := newFakeReceivableRepo()
	outboxRepo := &fakeOutboxRepo{}
	return &serviceFixture{
		service:        NewLedgerService(payableRepo, receivableRepo, outboxRepo, zap.NewNop()),
		payableRepo:    payableRepo,
		receivableRepo: receivableRepo,
		outboxRepo:     outboxRepo,
		scope: Scope{
			OrganizationID: uuid.New(),
			BranchID:       uuid.New(),
			ActorID:        uuid.New(),
		},
	}
}

func validPayableRequest() CreatePayableRequest {
	return CreatePayableRequest{
		SupplierID:     uuid.New(),
		DocumentNumber: "NF-5001",
		Description:    "Fuel invoice",
		Terms: TermsRequest{
			Amount:       decimal.NewFromInt(1000),
			DueDate:      time.Now().AddDate(0, 1, 0),
			FineRate:     decimal.NewFromFloat(2.0),
			InterestRate: decimal.NewFromFloat(1.0),
		},
	}
}

func TestLedgerService_CreatePayable(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	resp, err := f.service.CreatePayable(ctx, f.scope, validPayableRequest())
	require.NoError(t, err)
	assert.Equal(t, finance.PayableStatusOpen, resp.Status)
	assert.Equal(t, f.scope.OrganizationID, resp.OrganizationID)
	assert.Equal(t, "1000", resp.Amount.String())

	// creation event lands in the outbox
	assert.Equal(t, []string{"AccountPayableCreated"}, f.outboxRepo.eventTypes())

	t.Run("duplicate document number rejected", func(t *testing.T) {
		_, err := f.service.CreatePayable(ctx, f.scope, validPayableRequest())
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "DUPLICATE_DOCUMENT_NUMBER", domainErr.Code)
	})

	t.Run("same document number in another branch is fine", func(t *testing.T) {
		other := f.scope
		other.BranchID = uuid.New()
		_, err := f.service.CreatePayable(ctx, other, validPayableRequest())
		assert.NoError(t, err)
	})
}

func TestLedgerService_PaymentFlow(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	created, err := f.service.CreatePayable(ctx, f.scope, validPayableRequest())
	require.NoError(t, err)

	registered, err := f.service.RegisterPayment(ctx, f.scope, created.ID, RegisterPaymentRequest{
		Amount: decimal.NewFromInt(1000),
		Method: finance.PaymentMethodPix,
	})
	require.NoError(t, err)
	require.Len(t, registered.Payments, 1)
	assert.Equal(t, finance.PaymentStatusPending, registered.Payments[0].Status)

	confirmed, err := f.service.ConfirmPayment(ctx, f.scope, created.ID, registered.Payments[0].ID)
	require.NoError(t, err)
	assert.Equal(t, finance.PayableStatusPaid, confirmed.Status)
	assert.True(t, confirmed.Remaining.IsZero())

	assert.Equal(t, []string{
		"AccountPayableCreated",
		"PaymentRegistered",
		"PaymentConfirmed",
		"PaymentCompleted",
	}, f.outboxRepo.eventTypes())
}

func TestLedgerService_PaymentFlow_NotFound(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	_, err := f.service.RegisterPayment(ctx, f.scope, uuid.New(), RegisterPaymentRequest{
		Amount: decimal.NewFromInt(100),
		Method: finance.PaymentMethodPix,
	})
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}

func TestLedgerService_ScopeIsolation(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	created, err := f.service.CreatePayable(ctx, f.scope, validPayableRequest())
	require.NoError(t, err)

	foreign := Scope{OrganizationID: uuid.New(), BranchID: uuid.New(), ActorID: uuid.New()}
	_, err = f.service.GetPayableByID(ctx, foreign, created.ID)
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}

func TestLedgerService_SplitPayable(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	created, err := f.service.CreatePayable(ctx, f.scope, validPayableRequest())
	require.NoError(t, err)

	children, err := f.service.SplitPayable(ctx, f.scope, created.ID, SplitRequest{
		Installments: []decimal.Decimal{decimal.NewFromInt(500), decimal.NewFromInt(500)},
	})
	require.NoError(t, err)
	require.Len(t, children, 2)

	original, err := f.service.GetPayableByID(ctx, f.scope, created.ID)
	require.NoError(t, err)
	assert.Equal(t, finance.PayableStatusCancelled, original.Status)

	// original + 2 children persisted
	count, err := f.payableRepo.Count(ctx, f.scope.OrganizationID, f.scope.BranchID, finance.AccountPayableFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	for _, child := range children {
		assert.Equal(t, finance.PayableStatusOpen, child.Status)
		assert.Equal(t, "500", child.Amount.String())
	}
}

func TestLedgerService_CancelPayable(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	created, err := f.service.CreatePayable(ctx, f.scope, validPayableRequest())
	require.NoError(t, err)

	cancelled, err := f.service.CancelPayable(ctx, f.scope, created.ID, CancelRequest{Reason: "duplicate entry"})
	require.NoError(t, err)
	assert.Equal(t, finance.PayableStatusCancelled, cancelled.Status)
	assert.Contains(t, f.outboxRepo.eventTypes(), "AccountPayableCancelled")
}

func TestLedgerService_CreateReceivable(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	resp, err := f.service.CreateReceivable(ctx, f.scope, CreateReceivableRequest{
		CustomerID:     uuid.New(),
		DocumentNumber: "FAT-7001",
		Description:    "Freight billing",
		Terms: TermsRequest{
			Amount:  decimal.NewFromInt(2500),
			DueDate: time.Now().AddDate(0, 1, 0),
		},
		IssueDate: time.Now(),
		Origin:    finance.ReceivableOriginFreightBilling,
	})
	require.NoError(t, err)
	assert.Equal(t, finance.ReceivableStatusOpen, resp.Status)
	assert.Equal(t, "2500", resp.Outstanding.String())
}

func TestLedgerService_ReceivePayment(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	created, err := f.service.CreateReceivable(ctx, f.scope, CreateReceivableRequest{
		CustomerID:     uuid.New(),
		DocumentNumber: "FAT-7002",
		Description:    "Freight billing",
		Terms: TermsRequest{
			Amount:  decimal.NewFromInt(1000),
			DueDate: time.Now().AddDate(0, 1, 0),
		},
		IssueDate: time.Now(),
		Origin:    finance.ReceivableOriginManual,
	})
	require.NoError(t, err)

	partial, err := f.service.ReceiveReceivablePayment(ctx, f.scope, created.ID, ReceivePaymentRequest{
		Amount:        decimal.NewFromInt(400),
		BankAccountID: uuid.New(),
	})
	require.NoError(t, err)
	assert.Equal(t, finance.ReceivableStatusPartial, partial.Status)
	assert.Equal(t, "600", partial.Outstanding.String())

	full, err := f.service.ReceiveReceivablePayment(ctx, f.scope, created.ID, ReceivePaymentRequest{
		Amount:        decimal.NewFromInt(600),
		BankAccountID: uuid.New(),
	})
	require.NoError(t, err)
	assert.Equal(t, finance.ReceivableStatusReceived, full.Status)
}

func TestLedgerService_SweepOverdueReceivables(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	// one past-due title and one current title
	for i, due := range []time.Time{time.Now().AddDate(0, 0, -10), time.Now().AddDate(0, 1, 0)} {
		_, err := f.service.CreateReceivable(ctx, f.scope, CreateReceivableRequest{
			CustomerID:     uuid.New(),
			DocumentNumber: "FAT-800" + string(rune('1'+i)),
			Description:    "Freight billing",
			Terms: TermsRequest{
				Amount:  decimal.NewFromInt(1000),
				DueDate: due,
			},
			IssueDate: time.Now().AddDate(0, -2, 0),
			Origin:    finance.ReceivableOriginFreightBilling,
		})
		require.NoError(t, err)
	}

	marked, err := f.service.SweepOverdueReceivables(ctx, f.scope, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, marked)

	// a second sweep finds nothing new
	marked, err = f.service.SweepOverdueReceivables(ctx, f.scope, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, marked)
}

func TestLedgerService_FinalizeBilling(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	resp, err := f.service.FinalizeBilling(ctx, f.scope, FinalizeBillingRequest{
		CustomerID:     uuid.New(),
		DocumentNumber: "CTE-9001",
		Description:    "Interstate freight",
		GrossAmount:    decimal.NewFromInt(6000),
		DueDate:        time.Now().AddDate(0, 1, 0),
		LegalEntity:    true,
	})
	require.NoError(t, err)

	assert.Equal(t, "369.00", resp.Withholding.TotalWithholding.StringFixed(2))
	assert.Equal(t, "5631.00", resp.Withholding.NetAmount.StringFixed(2))
	assert.Equal(t, "5631", resp.Receivable.Amount.String())
	assert.Equal(t, finance.ReceivableOriginFreightBilling, resp.Receivable.Origin)

	t.Run("invalid gross amount", func(t *testing.T) {
		_, err := f.service.FinalizeBilling(ctx, f.scope, FinalizeBillingRequest{
			CustomerID:     uuid.New(),
			DocumentNumber: "CTE-9002",
			Description:    "Interstate freight",
			GrossAmount:    decimal.Zero,
			DueDate:        time.Now().AddDate(0, 1, 0),
		})
		require.Error(t, err)
	})
}

func TestLedgerService_SimulateWithholding(t *testing.T) {
	f := newServiceFixture()

	outcome, err := f.service.SimulateWithholding(context.Background(), tax.CalculationInput{
		GrossAmount: mustBRL(t, "6000.00"),
		LegalEntity: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "369.00", outcome.TotalWithholding.StringFixed(2))
	// simulation creates nothing
	assert.Empty(t, f.receivableRepo.receivables)
	assert.Empty(t, f.outboxRepo.entries)
}
