package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/freteflow/backend/internal/domain/finance"
	"github.com/freteflow/backend/internal/domain/shared"
	"github.com/freteflow/backend/internal/domain/shared/valueobject"
	"github.com/freteflow/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newSQLiteDB opens an in-memory database with the ledger schema for
// round-trip tests that exercise real SQL.
func newSQLiteDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&mode=memory"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.AccountPayableModel{},
		&models.PaymentModel{},
		&models.AccountReceivableModel{},
		&models.OutboxEntryModel{},
	))
	return db
}

func newRoundtripPayable(t *testing.T) *finance.AccountPayable {
	amount, err := valueobject.NewMoneyBRLFromString("1500.00")
	require.NoError(t, err)
	terms, err := valueobject.NewPaymentTerms(
		time.Now().AddDate(0, 1, 0).Truncate(time.Second), amount, nil, nil,
		decimal.RequireFromString("2"), decimal.RequireFromString("1"))
	require.NoError(t, err)
	payable, err := finance.NewAccountPayable(uuid.New(), uuid.New(), uuid.New(), "NF-7001", "Fuel invoice", terms)
	require.NoError(t, err)
	payable.ClearDomainEvents()
	return payable
}

func TestPayableRepository_Roundtrip(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewGormAccountPayableRepository(db)
	ctx := context.Background()

	payable := newRoundtripPayable(t)
	require.NoError(t, repo.Save(ctx, payable))

	loaded, err := repo.FindByID(ctx, payable.OrganizationID, payable.BranchID, payable.ID)
	require.NoError(t, err)
	assert.Equal(t, payable.DocumentNumber, loaded.DocumentNumber)
	assert.Equal(t, finance.PayableStatusOpen, loaded.Status)
	assert.Equal(t, "1500", loaded.Terms.Amount().Amount().String())
	assert.Equal(t, 1, loaded.Version)

	t.Run("payment survives a settlement cycle", func(t *testing.T) {
		amount, err := valueobject.NewMoneyBRLFromString("1500.00")
		require.NoError(t, err)
		payment, err := finance.NewPayment(loaded.ID, amount, finance.PaymentMethodPix, nil, "tx-123", "")
		require.NoError(t, err)
		require.NoError(t, loaded.RegisterPayment(payment))
		loaded.ClearDomainEvents()
		require.NoError(t, repo.SaveWithLock(ctx, loaded))

		require.NoError(t, loaded.ConfirmPayment(payment.ID))
		loaded.ClearDomainEvents()
		require.NoError(t, repo.SaveWithLock(ctx, loaded))

		settled, err := repo.FindByID(ctx, loaded.OrganizationID, loaded.BranchID, loaded.ID)
		require.NoError(t, err)
		assert.Equal(t, finance.PayableStatusPaid, settled.Status)
		require.Len(t, settled.Payments, 1)
		assert.Equal(t, finance.PaymentStatusConfirmed, settled.Payments[0].Status)
		assert.Equal(t, "tx-123", settled.Payments[0].TransactionID)
		assert.Equal(t, loaded.Version, settled.Version)
	})

	t.Run("stale version is rejected", func(t *testing.T) {
		stale := newRoundtripPayable(t)
		stale.DocumentNumber = "NF-7002"
		require.NoError(t, repo.Save(ctx, stale))

		first, err := repo.FindByID(ctx, stale.OrganizationID, stale.BranchID, stale.ID)
		require.NoError(t, err)
		second, err := repo.FindByID(ctx, stale.OrganizationID, stale.BranchID, stale.ID)
		require.NoError(t, err)

		require.NoError(t, first.Reschedule(time.Now().AddDate(0, 2, 0), uuid.New()))
		first.ClearDomainEvents()
		require.NoError(t, repo.SaveWithLock(ctx, first))

		require.NoError(t, second.Reschedule(time.Now().AddDate(0, 3, 0), uuid.New()))
		second.ClearDomainEvents()
		err = repo.SaveWithLock(ctx, second)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})

	t.Run("scope isolation", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New(), payable.BranchID, payable.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestReceivableRepository_Roundtrip(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewGormAccountReceivableRepository(db)
	ctx := context.Background()

	amount, err := valueobject.NewMoneyBRLFromString("800.00")
	require.NoError(t, err)
	terms, err := valueobject.NewPaymentTerms(
		time.Now().AddDate(0, 0, -10).Truncate(time.Second), amount, nil, nil,
		decimal.Zero, decimal.Zero)
	require.NoError(t, err)
	receivable, err := finance.NewAccountReceivable(
		uuid.New(), uuid.New(), uuid.New(), "FAT-3001", "Freight invoice",
		terms, time.Now().AddDate(0, -1, 0), finance.ReceivableOriginFreightBilling)
	require.NoError(t, err)
	receivable.ClearDomainEvents()

	require.NoError(t, repo.Save(ctx, receivable))

	t.Run("overdue sweep picks up the title", func(t *testing.T) {
		overdue, err := repo.FindOverdue(ctx, receivable.OrganizationID, receivable.BranchID, time.Now())
		require.NoError(t, err)
		require.Len(t, overdue, 1)
		assert.Equal(t, receivable.ID, overdue[0].ID)
	})

	t.Run("receipt state survives reload", func(t *testing.T) {
		loaded, err := repo.FindByID(ctx, receivable.OrganizationID, receivable.BranchID, receivable.ID)
		require.NoError(t, err)

		partial, err := valueobject.NewMoneyBRLFromString("300.00")
		require.NoError(t, err)
		require.NoError(t, loaded.ReceivePayment(partial, uuid.New(), uuid.New()))
		loaded.ClearDomainEvents()
		require.NoError(t, repo.SaveWithLock(ctx, loaded))

		reloaded, err := repo.FindByID(ctx, receivable.OrganizationID, receivable.BranchID, receivable.ID)
		require.NoError(t, err)
		assert.Equal(t, finance.ReceivableStatusPartial, reloaded.Status)
		assert.Equal(t, "300", reloaded.AmountReceived.String())
		assert.Equal(t, "500", reloaded.OutstandingAmount().Amount().String())
	})

	t.Run("count honors status filter", func(t *testing.T) {
		status := finance.ReceivableStatusPartial
		count, err := repo.Count(ctx, receivable.OrganizationID, receivable.BranchID,
			finance.AccountReceivableFilter{Status: &status})
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})
}

func TestOutboxRepository_Roundtrip(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewGormOutboxRepository(db)
	ctx := context.Background()

	event := shared.NewBaseDomainEvent("AccountPayableCreated", "AccountPayable", uuid.New(), uuid.New(), uuid.New())
	entry := shared.NewOutboxEntry(&event, []byte(`{"document_number":"NF-7001"}`))
	require.NoError(t, repo.Save(ctx, entry))

	pending, err := repo.FindPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "AccountPayableCreated", pending[0].EventType)

	pending[0].MarkFailed("broker unavailable")
	require.NoError(t, repo.Update(ctx, pending[0]))

	retryable, err := repo.FindRetryable(ctx, time.Now().Add(time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, retryable, 1)
	assert.Equal(t, 1, retryable[0].RetryCount)

	retryable[0].MarkSent()
	require.NoError(t, repo.Update(ctx, retryable[0]))

	deleted, err := repo.DeleteOlderThan(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}
