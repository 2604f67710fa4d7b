package finance

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// OverdueSweeper periodically flags past-due receivables across all branches
type OverdueSweeper struct {
	service  *LedgerService
	interval time.Duration
	logger   *zap.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewOverdueSweeper creates a new OverdueSweeper
func NewOverdueSweeper(service *LedgerService, interval time.Duration, logger *zap.Logger) *OverdueSweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &OverdueSweeper{
		service:  service,
		interval: interval,
		logger:   logger.Named("overdue-sweeper"),
	}
}

// Start begins the periodic sweep. One pass runs immediately.
func (s *OverdueSweeper) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		s.sweep(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()

	s.logger.Info("overdue sweeper started", zap.Duration("interval", s.interval))
}

// Stop stops the sweeper and waits for the current pass to finish
func (s *OverdueSweeper) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("overdue sweeper stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *OverdueSweeper) sweep(ctx context.Context) {
	marked, err := s.service.SweepAllOverdueReceivables(ctx, time.Now())
	if err != nil {
		s.logger.Error("overdue sweep failed", zap.Error(err))
		return
	}
	if marked > 0 {
		s.logger.Info("overdue sweep finished", zap.Int("marked", marked))
	}
}
