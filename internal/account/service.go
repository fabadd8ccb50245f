// Package account assembles the merged per-user read model served by the
// API: session identity, subscription with derived activity status, and
// webhook wait state. The stores hold no cross-references to each other;
// this service is where the join happens, at read time.
package account

import (
	"context"
	"log/slog"

	"subtrack/internal/types"
)

// SessionResolver resolves an opaque token to its session.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*types.Session, error)
}

// SubscriptionReader fetches the stored subscription record.
type SubscriptionReader interface {
	Fetch(ctx context.Context, username string) (types.Subscription, error)
}

// WaitStatusReader reads webhook wait state. Implementations fail open to
// the empty state, so this read never errors.
type WaitStatusReader interface {
	Status(ctx context.Context, username string) types.WebhookWaitInfo
}

// Service builds user profiles and answers entitlement checks.
type Service struct {
	sessions SessionResolver
	subs     SubscriptionReader
	waits    WaitStatusReader
	clock    types.Clock
	logger   *slog.Logger
}

// NewService creates an account Service.
func NewService(
	sessions SessionResolver,
	subs SubscriptionReader,
	waits WaitStatusReader,
	clock types.Clock,
	logger *slog.Logger,
) *Service {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		sessions: sessions,
		subs:     subs,
		waits:    waits,
		clock:    clock,
		logger:   logger,
	}
}

// Profile resolves the token and joins the three stores into the merged
// read model. A missing subscription row yields the free-tier view; a
// failing wait-state read yields the empty wait state. Only an unknown
// token or a subscription storage failure aborts the call.
func (s *Service) Profile(ctx context.Context, token string) (*types.UserProfile, error) {
	session, err := s.sessions.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	sub, err := s.subs.Fetch(ctx, session.Username)
	if err != nil {
		return nil, err
	}

	waitInfo := s.waits.Status(ctx, session.Username)

	return &types.UserProfile{
		Username:            session.Username,
		Subscription:        sub.View(s.clock.Now()),
		WebhookInfo:         waitInfo,
		IsWaitingForWebhook: waitInfo.IsWaiting(),
	}, nil
}

// Entitled reports whether the token's owner currently has paid access:
// the stored expiration must be present and strictly in the future.
// Returns the username alongside so callers can log who asked.
func (s *Service) Entitled(ctx context.Context, token string) (string, bool, error) {
	session, err := s.sessions.Resolve(ctx, token)
	if err != nil {
		return "", false, err
	}

	sub, err := s.subs.Fetch(ctx, session.Username)
	if err != nil {
		return "", false, err
	}

	return session.Username, sub.EntitledAt(s.clock.Now()), nil
}
