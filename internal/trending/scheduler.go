package trending

import (
	"context"
	"time"

	"go.uber.org/zap"

	"melodex/internal/core"
)

// SyncFunc is the synchronization entry point the scheduler drives. Kept as
// a function value so the timer and the sync logic stay independently
// testable.
type SyncFunc func(ctx context.Context) (core.SyncSummary, error)

// Scheduler invokes a SyncFunc on a fixed cadence. Failures are logged and
// swallowed; no caller waits on a scheduled run, and the previous snapshot
// stays in place.
type Scheduler struct {
	interval   time.Duration
	runOnStart bool
	sync       SyncFunc
	logger     *zap.Logger
}

func NewScheduler(cfg *core.SyncConfig, sync SyncFunc, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		interval:   cfg.Interval,
		runOnStart: cfg.RunOnStart,
		sync:       sync,
		logger:     logger,
	}
}

// Run blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("Starting trending scheduler",
		zap.Duration("interval", s.interval))

	if s.runOnStart {
		s.runOnce(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Trending scheduler stopped")
			return nil
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	summary, err := s.sync(ctx)
	if err != nil {
		s.logger.Error("Scheduled synchronization failed", zap.Error(err))
		return
	}
	s.logger.Info("Scheduled synchronization complete",
		zap.Int("tracks", summary.Count))
}
