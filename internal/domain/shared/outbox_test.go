package shared

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEntry() *OutboxEntry {
	event := NewBaseDomainEvent("PaymentConfirmed", "AccountPayable", uuid.New(), uuid.New(), uuid.New())
	return NewOutboxEntry(&event, []byte(`{"amount":"100"}`))
}

func TestNewOutboxEntry(t *testing.T) {
	orgID := uuid.New()
	branchID := uuid.New()
	aggID := uuid.New()
	event := NewBaseDomainEvent("AccountPayableCreated", "AccountPayable", aggID, orgID, branchID)

	entry := NewOutboxEntry(&event, []byte(`{}`))
	assert.Equal(t, OutboxStatusPending, entry.Status)
	assert.Equal(t, orgID, entry.OrganizationID)
	assert.Equal(t, branchID, entry.BranchID)
	assert.Equal(t, aggID, entry.AggregateID)
	assert.Equal(t, "AccountPayableCreated", entry.EventType)
	assert.Equal(t, event.EventID(), entry.EventID)
	assert.Equal(t, DefaultMaxRetries, entry.MaxRetries)
	assert.Zero(t, entry.RetryCount)
}

func TestOutboxEntry_Lifecycle(t *testing.T) {
	entry := newTestEntry()

	require.NoError(t, entry.MarkProcessing())
	assert.Equal(t, OutboxStatusProcessing, entry.Status)

	entry.MarkSent()
	assert.Equal(t, OutboxStatusSent, entry.Status)
	assert.NotNil(t, entry.ProcessedAt)

	// sent entries cannot re-enter processing
	assert.Error(t, entry.MarkProcessing())
}

func TestOutboxEntry_RetryBackoff(t *testing.T) {
	entry := newTestEntry()
	require.NoError(t, entry.MarkProcessing())

	entry.MarkFailed("broker unavailable")
	assert.Equal(t, OutboxStatusFailed, entry.Status)
	assert.Equal(t, 1, entry.RetryCount)
	assert.Equal(t, "broker unavailable", entry.LastError)
	require.NotNil(t, entry.NextRetryAt)
	assert.True(t, entry.CanRetry())

	first := *entry.NextRetryAt
	require.NoError(t, entry.MarkProcessing())
	entry.MarkFailed("broker unavailable")
	require.NotNil(t, entry.NextRetryAt)
	// backoff doubles on each failure
	assert.True(t, entry.NextRetryAt.After(first))
}

func TestOutboxEntry_DeadLetter(t *testing.T) {
	entry := newTestEntry()
	for range DefaultMaxRetries {
		entry.MarkFailed("persistent failure")
	}
	assert.True(t, entry.IsDead())
	assert.False(t, entry.CanRetry())
	assert.Nil(t, entry.ProcessedAt)

	require.NoError(t, entry.ResetForRetry())
	assert.Equal(t, OutboxStatusPending, entry.Status)
	assert.Zero(t, entry.RetryCount)
	assert.Empty(t, entry.LastError)
	assert.Nil(t, entry.NextRetryAt)

	// only dead entries can be reset
	assert.Error(t, entry.ResetForRetry())
}

func TestOutboxEntry_BackoffDuration(t *testing.T) {
	entry := newTestEntry()
	entry.MarkFailed("transient")
	require.NotNil(t, entry.NextRetryAt)

	until := time.Until(*entry.NextRetryAt)
	assert.Greater(t, until, 500*time.Millisecond)
	assert.LessOrEqual(t, until, DefaultBaseBackoff+time.Second)
}
