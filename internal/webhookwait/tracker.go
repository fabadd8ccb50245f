// Package webhookwait tracks the per-user "waiting for a webhook" window:
// a bounded time range during which the service expects the billing
// provider to deliver a webhook, used to tell a client whether to keep
// polling. The window state machine is deliberately small: open (client
// request), close (webhook arrival), retire (periodic sweep).
package webhookwait

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"subtrack/internal/types"
)

// Config holds the tunable parameters of the wait-window state machine.
type Config struct {
	// Backdate shifts waitStartDate into the past so a webhook already in
	// transit when the wait was requested still lands inside the window.
	Backdate time.Duration

	// Window is the length of the wait window.
	Window time.Duration
}

// DefaultConfig returns the standard window parameters: a 10 second
// backdate and a one hour window.
func DefaultConfig() Config {
	return Config{
		Backdate: 10 * time.Second,
		Window:   time.Hour,
	}
}

// WaitRepo defines the data access methods needed by the Tracker.
type WaitRepo interface {
	Merge(ctx context.Context, username string, patch types.WebhookWaitPatch) error
	Get(ctx context.Context, username string) (types.WebhookWaitInfo, error)
}

// Tracker manages webhook wait windows on top of the partial-merge store.
type Tracker struct {
	repo    WaitRepo
	config  Config
	clock   types.Clock
	logger  *slog.Logger
	breaker *gobreaker.CircuitBreaker[types.WebhookWaitInfo]
}

// NewTracker creates a Tracker.
//
// Reads go through a circuit breaker: the wait info is a polling hint, not
// critical data, so when storage misbehaves the read path fails open to
// the empty state instead of failing the whole profile response. The
// breaker keeps a flapping database from adding a per-request error wait.
func NewTracker(repo WaitRepo, config Config, clock types.Clock, logger *slog.Logger) *Tracker {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	breaker := gobreaker.NewCircuitBreaker[types.WebhookWaitInfo](gobreaker.Settings{
		Name:        "webhook-wait-read",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})
	return &Tracker{
		repo:    repo,
		config:  config,
		clock:   clock,
		logger:  logger,
		breaker: breaker,
	}
}

// OpenWait opens (or resets) the user's wait window: waitStartDate is
// backdated slightly, waitEndDate is one window length ahead, and
// lastWebhookDate is left untouched by the partial merge.
func (t *Tracker) OpenWait(ctx context.Context, username string) error {
	now := t.clock.Now()
	start := now.Add(-t.config.Backdate)
	end := now.Add(t.config.Window)

	if err := t.repo.Merge(ctx, username, types.WebhookWaitPatch{
		WaitStartDate: &start,
		WaitEndDate:   &end,
	}); err != nil {
		return err
	}

	t.logger.Info("wait window opened",
		slog.String("username", username),
		slog.Time("wait_end", end),
	)
	return nil
}

// RecordWebhook stores the arrival time of a webhook, leaving the wait
// bounds untouched. If the timestamp falls inside an open window this
// effectively closes it, since IsWaiting derives from these fields.
func (t *Tracker) RecordWebhook(ctx context.Context, username string, at time.Time) error {
	return t.repo.Merge(ctx, username, types.WebhookWaitPatch{
		LastWebhookDate: &at,
	})
}

// Status returns the user's wait state. On storage error or open breaker
// it degrades to the empty state, logging the failure; callers always get
// a usable answer.
func (t *Tracker) Status(ctx context.Context, username string) types.WebhookWaitInfo {
	info, err := t.breaker.Execute(func() (types.WebhookWaitInfo, error) {
		return t.repo.Get(ctx, username)
	})
	if err != nil {
		t.logger.Warn("webhook wait read failed open",
			slog.String("username", username),
			slog.Any("error", err),
		)
		return types.WebhookWaitInfo{Username: username}
	}
	return info
}
