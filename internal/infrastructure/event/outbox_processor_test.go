package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/freteflow/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memoryOutboxRepo struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*shared.OutboxEntry
}

func newMemoryOutboxRepo() *memoryOutboxRepo {
	return &memoryOutboxRepo{entries: make(map[uuid.UUID]*shared.OutboxEntry)}
}

func (r *memoryOutboxRepo) Save(_ context.Context, entries ...*shared.OutboxEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entries {
		r.entries[e.ID] = e
	}
	return nil
}

func (r *memoryOutboxRepo) FindPending(_ context.Context, limit int) ([]*shared.OutboxEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*shared.OutboxEntry
	for _, e := range r.entries {
		if e.Status == shared.OutboxStatusPending && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memoryOutboxRepo) FindRetryable(_ context.Context, before time.Time, limit int) ([]*shared.OutboxEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*shared.OutboxEntry
	for _, e := range r.entries {
		if e.Status == shared.OutboxStatusFailed && e.NextRetryAt != nil && e.NextRetryAt.Before(before) && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memoryOutboxRepo) Update(_ context.Context, entry *shared.OutboxEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entry.ID] = entry
	return nil
}

func (r *memoryOutboxRepo) DeleteOlderThan(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for id, e := range r.entries {
		if e.Status == shared.OutboxStatusSent && e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
			delete(r.entries, id)
			deleted++
		}
	}
	return deleted, nil
}

type stubPublisher struct {
	mu        sync.Mutex
	published []string
	err       error
}

func (p *stubPublisher) Publish(_ context.Context, entry *shared.OutboxEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, entry.EventType)
	return nil
}

func newTestEntry(eventType string) *shared.OutboxEntry {
	event := shared.NewBaseDomainEvent(eventType, "AccountPayable", uuid.New(), uuid.New(), uuid.New())
	return shared.NewOutboxEntry(&event, []byte(`{}`))
}

func TestOutboxProcessor_ProcessBatch(t *testing.T) {
	t.Run("publishes pending entries and marks them sent", func(t *testing.T) {
		repo := newMemoryOutboxRepo()
		publisher := &stubPublisher{}
		processor := NewOutboxProcessor(repo, publisher, DefaultOutboxProcessorConfig(), zap.NewNop())

		entry := newTestEntry("AccountPayableCreated")
		require.NoError(t, repo.Save(context.Background(), entry))

		processor.ProcessBatch(context.Background())

		assert.Equal(t, []string{"AccountPayableCreated"}, publisher.published)
		assert.Equal(t, shared.OutboxStatusSent, entry.Status)
		assert.NotNil(t, entry.ProcessedAt)
	})

	t.Run("failed publish schedules a retry", func(t *testing.T) {
		repo := newMemoryOutboxRepo()
		publisher := &stubPublisher{err: errors.New("broker unavailable")}
		processor := NewOutboxProcessor(repo, publisher, DefaultOutboxProcessorConfig(), zap.NewNop())

		entry := newTestEntry("PaymentConfirmed")
		require.NoError(t, repo.Save(context.Background(), entry))

		processor.ProcessBatch(context.Background())

		assert.Equal(t, shared.OutboxStatusFailed, entry.Status)
		assert.Equal(t, 1, entry.RetryCount)
		require.NotNil(t, entry.NextRetryAt)

		// Make the retry due, clear the failure, drain again.
		due := time.Now().Add(-time.Second)
		entry.NextRetryAt = &due
		publisher.err = nil

		processor.ProcessBatch(context.Background())

		assert.Equal(t, shared.OutboxStatusSent, entry.Status)
		assert.Equal(t, []string{"PaymentConfirmed"}, publisher.published)
	})

	t.Run("entry exhausting retries goes to dead letter", func(t *testing.T) {
		repo := newMemoryOutboxRepo()
		publisher := &stubPublisher{err: errors.New("broker unavailable")}
		processor := NewOutboxProcessor(repo, publisher, DefaultOutboxProcessorConfig(), zap.NewNop())

		entry := newTestEntry("AccountPayableCancelled")
		entry.RetryCount = shared.DefaultMaxRetries - 1
		entry.Status = shared.OutboxStatusPending
		require.NoError(t, repo.Save(context.Background(), entry))

		processor.ProcessBatch(context.Background())

		assert.Equal(t, shared.OutboxStatusDead, entry.Status)
		assert.True(t, entry.IsDead())
	})
}

func TestOutboxProcessor_StartStop(t *testing.T) {
	repo := newMemoryOutboxRepo()
	publisher := &stubPublisher{}
	config := DefaultOutboxProcessorConfig()
	config.PollInterval = 10 * time.Millisecond
	processor := NewOutboxProcessor(repo, publisher, config, zap.NewNop())

	entry := newTestEntry("AccountReceivableCreated")
	require.NoError(t, repo.Save(context.Background(), entry))

	require.NoError(t, processor.Start(context.Background()))

	assert.Eventually(t, func() bool {
		publisher.mu.Lock()
		defer publisher.mu.Unlock()
		return len(publisher.published) == 1
	}, time.Second, 10*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, processor.Stop(stopCtx))
}
