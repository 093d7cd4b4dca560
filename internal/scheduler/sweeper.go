package scheduler

import (
	"context"
	"time"

	"leadmarket_backend/platform/clock"
	"leadmarket_backend/platform/logger"
)

const defaultSweepInterval = 5 * time.Minute

// StalePurchaseExpirer releases pending purchases created before a cutoff.
type StalePurchaseExpirer interface {
	ExpireStalePending(ctx context.Context, createdBefore time.Time) (int, error)
}

// PendingPurchaseSweeper periodically expires checkouts whose expiry task was
// lost or never scheduled.
type PendingPurchaseSweeper struct {
	expirer  StalePurchaseExpirer
	clock    clock.Clock
	log      *logger.Logger
	interval time.Duration
	maxAge   time.Duration
}

func NewPendingPurchaseSweeper(expirer StalePurchaseExpirer, clk clock.Clock, log *logger.Logger, interval, maxAge time.Duration) *PendingPurchaseSweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &PendingPurchaseSweeper{
		expirer:  expirer,
		clock:    clk,
		log:      log,
		interval: interval,
		maxAge:   maxAge,
	}
}

func (s *PendingPurchaseSweeper) Run(ctx context.Context) {
	if s == nil || s.expirer == nil {
		return
	}

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
}

func (s *PendingPurchaseSweeper) sweep(ctx context.Context) {
	cutoff := s.clock.Now().Add(-s.maxAge)

	expired, err := s.expirer.ExpireStalePending(ctx, cutoff)
	if err != nil {
		s.log.Warn("pending purchase sweep failed", "error", err)
		return
	}

	if expired > 0 {
		s.log.Info("pending purchase sweep expired checkouts", "expired", expired)
	}
}
