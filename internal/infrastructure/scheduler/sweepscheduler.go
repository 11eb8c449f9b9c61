// Package scheduler runs the periodic reconciliation sweep that catches
// charges whose settlement webhook was never delivered.
package scheduler

import (
	"context"
	"sync"
	"time"

	"pixgate/internal/application/charge/usecases"
	"pixgate/internal/shared/goroutine"
	"pixgate/internal/shared/logger"
)

// SweepScheduler periodically reconciles open pending charges against the
// gateway. The sweep never writes expiry; it only routes settlement evidence
// through the reconciliation engine.
type SweepScheduler struct {
	sweepUC  *usecases.SweepStaleChargesUseCase
	logger   logger.Interface
	stopChan chan struct{}
	stopOnce sync.Once      // Ensures Stop() is only called once
	wg       sync.WaitGroup // Tracks running goroutines for graceful shutdown
	interval time.Duration
}

func NewSweepScheduler(
	sweepUC *usecases.SweepStaleChargesUseCase,
	interval time.Duration,
	logger logger.Interface,
) *SweepScheduler {
	if interval <= 0 {
		interval = 2 * time.Minute
	}
	return &SweepScheduler{
		sweepUC:  sweepUC,
		logger:   logger,
		stopChan: make(chan struct{}),
		interval: interval,
	}
}

// Start starts the scheduler loop in the background.
func (s *SweepScheduler) Start(ctx context.Context) {
	s.logger.Infow("starting reconciliation sweep scheduler", "interval", s.interval)

	s.wg.Add(1)
	goroutine.SafeGo(s.logger, "reconciliation-sweep", func() {
		defer s.wg.Done()
		s.runSweepLoop(ctx)
	})
}

// Stop stops the scheduler gracefully and waits for the running pass to finish.
// Safe to call multiple times - only the first call will actually stop the scheduler.
func (s *SweepScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Infow("stopping reconciliation sweep scheduler")
		close(s.stopChan)
		s.wg.Wait()
		s.logger.Infow("reconciliation sweep scheduler stopped")
	})
}

func (s *SweepScheduler) runSweepLoop(ctx context.Context) {
	// Run immediately on startup to catch anything missed while down.
	s.runSweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Infow("sweep scheduler stopped due to context cancellation")
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.runSweep(ctx)
		}
	}
}

func (s *SweepScheduler) runSweep(ctx context.Context) {
	startTime := time.Now()

	settled, err := s.sweepUC.Execute(ctx)
	if err != nil {
		s.logger.Errorw("reconciliation sweep failed",
			"error", err,
			"duration", time.Since(startTime),
		)
		return
	}
	if settled > 0 {
		s.logger.Infow("reconciliation sweep settled charges",
			"count", settled,
			"duration", time.Since(startTime),
		)
	}
}
