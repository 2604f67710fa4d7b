package finance

import (
	"testing"
	"time"

	"github.com/freteflow/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testCustomerID    = uuid.New()
	testBankAccountID = uuid.New()
)

// newTestReceivable builds a receivable with the given principal, due in the
// future so no charges accrue during the test run
func newTestReceivable(t *testing.T, principal float64) *AccountReceivable {
	t.Helper()
	terms, err := valueobject.NewPaymentTerms(
		time.Now().AddDate(0, 1, 0),
		valueobject.NewMoneyBRLFromFloat(principal),
		nil, nil,
		decimal.NewFromFloat(2.0),
		decimal.NewFromFloat(1.0),
	)
	require.NoError(t, err)

	ar, err := NewAccountReceivable(
		testOrgID, testBranchID, testCustomerID,
		"FAT-3001", "Freight billing", terms, time.Now(), ReceivableOriginFreightBilling,
	)
	require.NoError(t, err)
	ar.ClearDomainEvents()
	return ar
}

func TestNewAccountReceivable(t *testing.T) {
	terms, err := valueobject.NewPaymentTerms(
		time.Now().AddDate(0, 1, 0),
		valueobject.NewMoneyBRLFromFloat(1000),
		nil, nil, decimal.Zero, decimal.Zero,
	)
	require.NoError(t, err)
	issueDate := time.Now()

	tests := []struct {
		name           string
		organizationID uuid.UUID
		branchID       uuid.UUID
		customerID     uuid.UUID
		documentNumber string
		description    string
		issueDate      time.Time
		origin         ReceivableOrigin
		wantCode       string
	}{
		{"valid receivable", testOrgID, testBranchID, testCustomerID, "FAT-3001", "Freight", issueDate, ReceivableOriginFreightBilling, ""},
		{"nil organization", uuid.Nil, testBranchID, testCustomerID, "FAT-3001", "Freight", issueDate, ReceivableOriginManual, "INVALID_ORGANIZATION"},
		{"nil branch", testOrgID, uuid.Nil, testCustomerID, "FAT-3001", "Freight", issueDate, ReceivableOriginManual, "INVALID_BRANCH"},
		{"nil customer", testOrgID, testBranchID, uuid.Nil, "FAT-3001", "Freight", issueDate, ReceivableOriginManual, "INVALID_CUSTOMER"},
		{"empty document number", testOrgID, testBranchID, testCustomerID, "", "Freight", issueDate, ReceivableOriginManual, "INVALID_DOCUMENT_NUMBER"},
		{"empty description", testOrgID, testBranchID, testCustomerID, "FAT-3001", "", issueDate, ReceivableOriginManual, "INVALID_DESCRIPTION"},
		{"zero issue date", testOrgID, testBranchID, testCustomerID, "FAT-3001", "Freight", time.Time{}, ReceivableOriginManual, "INVALID_ISSUE_DATE"},
		{"unknown origin", testOrgID, testBranchID, testCustomerID, "FAT-3001", "Freight", issueDate, ReceivableOrigin("IMPORT"), "INVALID_ORIGIN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ar, err := NewAccountReceivable(tt.organizationID, tt.branchID, tt.customerID,
				tt.documentNumber, tt.description, terms, tt.issueDate, tt.origin)
			if tt.wantCode != "" {
				assertDomainCode(t, err, tt.wantCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, ReceivableStatusOpen, ar.Status)
			assert.True(t, ar.AmountReceived.IsZero())

			events := ar.GetDomainEvents()
			require.Len(t, events, 1)
			assert.Equal(t, "AccountReceivableCreated", events[0].EventType())
		})
	}
}

func TestAccountReceivable_ReceivePayment(t *testing.T) {
	t.Run("full receipt in one step", func(t *testing.T) {
		ar := newTestReceivable(t, 1000)
		err := ar.ReceivePayment(valueobject.NewMoneyBRLFromFloat(1000), testBankAccountID, testActorID)
		require.NoError(t, err)

		assert.Equal(t, ReceivableStatusReceived, ar.Status)
		assert.NotNil(t, ar.ReceiveDate)
		assert.True(t, ar.OutstandingAmount().IsZero())

		events := ar.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, "AccountReceivableReceived", events[0].EventType())
	})

	t.Run("partial then full", func(t *testing.T) {
		ar := newTestReceivable(t, 1000)
		require.NoError(t, ar.ReceivePayment(valueobject.NewMoneyBRLFromFloat(400), testBankAccountID, testActorID))
		assert.Equal(t, ReceivableStatusPartial, ar.Status)
		assert.Equal(t, "600.00", ar.OutstandingAmount().StringFixed(2))
		assert.Nil(t, ar.ReceiveDate)

		require.NoError(t, ar.ReceivePayment(valueobject.NewMoneyBRLFromFloat(600), testBankAccountID, testActorID))
		assert.Equal(t, ReceivableStatusReceived, ar.Status)
		assert.Equal(t, "100", ar.ReceivedPercentage().String())
	})

	t.Run("cumulative overreceipt rejected", func(t *testing.T) {
		ar := newTestReceivable(t, 1000)
		require.NoError(t, ar.ReceivePayment(valueobject.NewMoneyBRLFromFloat(800), testBankAccountID, testActorID))
		err := ar.ReceivePayment(valueobject.NewMoneyBRLFromFloat(300), testBankAccountID, testActorID)
		assertDomainCode(t, err, "EXCEEDS_AMOUNT")
		assert.Equal(t, "800.00", ar.AmountReceivedMoney().StringFixed(2))
		assert.Equal(t, ReceivableStatusPartial, ar.Status)
	})

	t.Run("validation", func(t *testing.T) {
		ar := newTestReceivable(t, 1000)
		assertDomainCode(t, ar.ReceivePayment(valueobject.ZeroBRL(), testBankAccountID, testActorID), "INVALID_AMOUNT")
		assertDomainCode(t, ar.ReceivePayment(valueobject.NewMoneyBRLFromFloat(100), uuid.Nil, testActorID), "INVALID_BANK_ACCOUNT")

		usd, err := valueobject.NewMoneyFromFloat(100, valueobject.USD)
		require.NoError(t, err)
		assertDomainCode(t, ar.ReceivePayment(usd, testBankAccountID, testActorID), "CURRENCY_MISMATCH")
	})

	t.Run("totals carry the title currency", func(t *testing.T) {
		principal, err := valueobject.NewMoneyFromFloat(1000, valueobject.USD)
		require.NoError(t, err)
		terms, err := valueobject.NewPaymentTerms(
			time.Now().AddDate(0, 1, 0), principal,
			nil, nil, decimal.Zero, decimal.Zero,
		)
		require.NoError(t, err)
		ar, err := NewAccountReceivable(testOrgID, testBranchID, testCustomerID,
			"FAT-3004", "Cross-border freight", terms, time.Now(), ReceivableOriginManual)
		require.NoError(t, err)

		receipt, err := valueobject.NewMoneyFromFloat(400, valueobject.USD)
		require.NoError(t, err)
		require.NoError(t, ar.ReceivePayment(receipt, testBankAccountID, testActorID))

		assert.Equal(t, valueobject.USD, ar.AmountReceivedMoney().Currency())
		assert.Equal(t, valueobject.USD, ar.OutstandingAmount().Currency())
		assert.Equal(t, "600.00", ar.OutstandingAmount().StringFixed(2))
	})

	t.Run("terminal state rejects receipts", func(t *testing.T) {
		ar := newTestReceivable(t, 1000)
		require.NoError(t, ar.ReceivePayment(valueobject.NewMoneyBRLFromFloat(1000), testBankAccountID, testActorID))
		err := ar.ReceivePayment(valueobject.NewMoneyBRLFromFloat(1), testBankAccountID, testActorID)
		assertDomainCode(t, err, "INVALID_STATE")
	})
}

func TestAccountReceivable_ReceivedPercentage(t *testing.T) {
	ar := newTestReceivable(t, 1000)
	require.NoError(t, ar.ReceivePayment(valueobject.NewMoneyBRLFromFloat(400), testBankAccountID, testActorID))
	assert.Equal(t, "40", ar.ReceivedPercentage().String())
}

func TestAccountReceivable_Cancel(t *testing.T) {
	t.Run("open title cancels", func(t *testing.T) {
		ar := newTestReceivable(t, 1000)
		require.NoError(t, ar.Cancel("billing error", testActorID))
		assert.Equal(t, ReceivableStatusCancelled, ar.Status)
		assert.NotNil(t, ar.CancelledAt)
	})

	t.Run("any receipt blocks cancellation", func(t *testing.T) {
		ar := newTestReceivable(t, 1000)
		require.NoError(t, ar.ReceivePayment(valueobject.NewMoneyBRLFromFloat(0.01), testBankAccountID, testActorID))
		err := ar.Cancel("billing error", testActorID)
		assertDomainCode(t, err, "INVALID_STATE") // PARTIAL cannot transition to CANCELLED
	})

	t.Run("overdue title with receipts cannot cancel", func(t *testing.T) {
		terms, err := valueobject.NewPaymentTerms(
			time.Now().AddDate(0, 0, -10),
			valueobject.NewMoneyBRLFromFloat(1000),
			nil, nil, decimal.Zero, decimal.Zero,
		)
		require.NoError(t, err)
		ar, err := NewAccountReceivable(testOrgID, testBranchID, testCustomerID,
			"FAT-3003", "Late billing", terms, time.Now().AddDate(0, -1, 0), ReceivableOriginManual)
		require.NoError(t, err)
		require.NoError(t, ar.ReceivePayment(valueobject.NewMoneyBRLFromFloat(200), testBankAccountID, testActorID))
		require.NoError(t, ar.MarkOverdue(time.Now()))

		assertDomainCode(t, ar.Cancel("billing error", testActorID), "HAS_RECEIPTS")
	})

	t.Run("reason is required", func(t *testing.T) {
		ar := newTestReceivable(t, 1000)
		assertDomainCode(t, ar.Cancel("", testActorID), "INVALID_REASON")
	})

	t.Run("cancel is terminal", func(t *testing.T) {
		ar := newTestReceivable(t, 1000)
		require.NoError(t, ar.Cancel("first", testActorID))
		assertDomainCode(t, ar.Cancel("second", testActorID), "INVALID_STATE")
	})
}

func TestAccountReceivable_Update(t *testing.T) {
	ar := newTestReceivable(t, 1000)
	description := "Updated freight billing"
	notes := "customer asked for detail"
	categoryID := uuid.New()

	require.NoError(t, ar.Update(ReceivableUpdate{
		Description: &description,
		Notes:       &notes,
		CategoryID:  &categoryID,
	}, testActorID))
	assert.Equal(t, description, ar.Description)
	assert.Equal(t, notes, ar.Notes)
	require.NotNil(t, ar.CategoryID)
	assert.Equal(t, categoryID, *ar.CategoryID)

	t.Run("empty description rejected", func(t *testing.T) {
		empty := ""
		assertDomainCode(t, ar.Update(ReceivableUpdate{Description: &empty}, testActorID), "INVALID_DESCRIPTION")
	})

	t.Run("terminal state rejects edits", func(t *testing.T) {
		cancelled := newTestReceivable(t, 1000)
		require.NoError(t, cancelled.Cancel("gone", testActorID))
		assertDomainCode(t, cancelled.Update(ReceivableUpdate{Notes: &notes}, testActorID), "INVALID_STATE")
	})
}

func TestAccountReceivable_Overdue(t *testing.T) {
	newOverdueReceivable := func(t *testing.T) *AccountReceivable {
		t.Helper()
		terms, err := valueobject.NewPaymentTerms(
			time.Now().AddDate(0, 0, -10),
			valueobject.NewMoneyBRLFromFloat(1000),
			nil, nil, decimal.NewFromFloat(2.0), decimal.NewFromFloat(1.0),
		)
		require.NoError(t, err)
		ar, err := NewAccountReceivable(testOrgID, testBranchID, testCustomerID,
			"FAT-3002", "Late billing", terms, time.Now().AddDate(0, -1, 0), ReceivableOriginFreightBilling)
		require.NoError(t, err)
		ar.ClearDomainEvents()
		return ar
	}

	t.Run("mark overdue from open", func(t *testing.T) {
		ar := newOverdueReceivable(t)
		require.NoError(t, ar.MarkOverdue(time.Now()))
		assert.Equal(t, ReceivableStatusOverdue, ar.Status)

		events := ar.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, "AccountReceivableOverdue", events[0].EventType())
	})

	t.Run("not actually past due", func(t *testing.T) {
		ar := newTestReceivable(t, 1000)
		assertDomainCode(t, ar.MarkOverdue(time.Now()), "NOT_OVERDUE")
	})

	t.Run("overdue title still receives payments", func(t *testing.T) {
		ar := newOverdueReceivable(t)
		require.NoError(t, ar.MarkOverdue(time.Now()))
		require.NoError(t, ar.ReceivePayment(valueobject.NewMoneyBRLFromFloat(500), testBankAccountID, testActorID))
		assert.Equal(t, ReceivableStatusPartial, ar.Status)
	})

	t.Run("reschedule reverts overdue to open", func(t *testing.T) {
		ar := newOverdueReceivable(t)
		require.NoError(t, ar.MarkOverdue(time.Now()))
		require.NoError(t, ar.Reschedule(time.Now().AddDate(0, 1, 0), testActorID))
		assert.Equal(t, ReceivableStatusOpen, ar.Status)
	})

	t.Run("reschedule reverts overdue to partial when received", func(t *testing.T) {
		ar := newOverdueReceivable(t)
		require.NoError(t, ar.ReceivePayment(valueobject.NewMoneyBRLFromFloat(300), testBankAccountID, testActorID))
		require.NoError(t, ar.MarkOverdue(time.Now()))
		require.NoError(t, ar.Reschedule(time.Now().AddDate(0, 1, 0), testActorID))
		assert.Equal(t, ReceivableStatusPartial, ar.Status)
	})
}

func TestAccountReceivable_Processing(t *testing.T) {
	ar := newTestReceivable(t, 1000)
	require.NoError(t, ar.MarkAsProcessing())
	assert.Equal(t, ReceivableStatusProcessing, ar.Status)

	// receipts are not accepted while the collection batch is in flight
	err := ar.ReceivePayment(valueobject.NewMoneyBRLFromFloat(100), testBankAccountID, testActorID)
	assertDomainCode(t, err, "INVALID_STATE")

	require.NoError(t, ar.CompleteProcessing())
	assert.Equal(t, ReceivableStatusOpen, ar.Status)
}

func TestReceivableStatus_Transitions(t *testing.T) {
	tests := []struct {
		from    ReceivableStatus
		to      ReceivableStatus
		allowed bool
	}{
		{ReceivableStatusOpen, ReceivableStatusCancelled, true},
		{ReceivableStatusOpen, ReceivableStatusOverdue, true},
		{ReceivableStatusPartial, ReceivableStatusCancelled, false},
		{ReceivableStatusPartial, ReceivableStatusReceived, true},
		{ReceivableStatusOverdue, ReceivableStatusOpen, true},
		{ReceivableStatusOverdue, ReceivableStatusPartial, true},
		{ReceivableStatusOverdue, ReceivableStatusCancelled, true},
		{ReceivableStatusReceived, ReceivableStatusOpen, false},
		{ReceivableStatusCancelled, ReceivableStatusOpen, false},
	}

	for _, tt := range tests {
		name := string(tt.from) + " to " + string(tt.to)
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}
