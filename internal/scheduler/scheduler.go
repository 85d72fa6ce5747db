package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper is the slice of the payment service the scheduler drives. Both
// sweeps take an explicit clock so they stay deterministic in tests.
type Sweeper interface {
	SweepExpiredOrders(ctx context.Context, now time.Time) (int, error)
	SweepAbandonedSlots(ctx context.Context, now time.Time) (int, error)
}

// Scheduler is the safety net for lost or delayed webhooks: a fixed-interval
// sweep that reclaims holds and expires orders whose window elapsed. Because
// the deadline lives in the database rather than in an in-process timer,
// correctness survives restarts.
type Scheduler struct {
	sweeper  Sweeper
	interval time.Duration
	log      *zap.Logger
}

func New(sweeper Sweeper, interval time.Duration, log *zap.Logger) *Scheduler {
	return &Scheduler{
		sweeper:  sweeper,
		interval: interval,
		log:      log.With(zap.String("component", "scheduler")),
	}
}

// Start runs the sweep loop until the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("Expiry scheduler started", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Expiry scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	now := time.Now()

	if _, err := s.sweeper.SweepExpiredOrders(ctx, now); err != nil {
		s.log.Error("Expired order sweep failed", zap.Error(err))
	}

	if _, err := s.sweeper.SweepAbandonedSlots(ctx, now); err != nil {
		s.log.Error("Abandoned slot sweep failed", zap.Error(err))
	}
}
