package webhookwait

import (
	"context"
	"log/slog"
	"time"

	"subtrack/internal/types"
)

// ExpiredSweeper is the data access method needed by the Sweeper.
type ExpiredSweeper interface {
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}

// Sweeper periodically retires wait windows whose deadline passed without
// a webhook. Without it, IsWaiting would stay true forever for a user
// whose webhook never arrived.
type Sweeper struct {
	repo     ExpiredSweeper
	interval time.Duration
	clock    types.Clock
	logger   *slog.Logger
}

// NewSweeper creates a Sweeper that runs every interval.
func NewSweeper(repo ExpiredSweeper, interval time.Duration, clock types.Clock, logger *slog.Logger) *Sweeper {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		repo:     repo,
		interval: interval,
		clock:    clock,
		logger:   logger,
	}
}

// Run sweeps once immediately, then on every tick until the context is
// cancelled. Sweep errors are logged and the loop continues; the next tick
// retries. Always returns ctx.Err().
func (s *Sweeper) Run(ctx context.Context) error {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	retired, err := s.repo.SweepExpired(ctx, s.clock.Now())
	if err != nil {
		s.logger.Error("wait window sweep failed", slog.Any("error", err))
		return
	}
	if retired > 0 {
		s.logger.Info("wait window sweep completed", slog.Int64("retired", retired))
	}
}
