// Package subscription implements the reconciliation engine: the logic that
// merges inbound billing-provider webhooks into the durable per-user
// subscription record and keeps the webhook wait tracker current.
package subscription

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"time"

	"subtrack/internal/types"
)

// SubscriptionStore is the subset of the subscription repository the
// reconciler needs.
type SubscriptionStore interface {
	// Update stores the authoritative purchase with full-replace semantics.
	Update(ctx context.Context, username string, expiration time.Time, purchase types.PurchasePayload) error

	// Remove deletes the record and reports whether one existed.
	Remove(ctx context.Context, username string) (bool, error)
}

// WebhookRecorder marks the arrival of a webhook for a user, closing any
// open wait window.
type WebhookRecorder interface {
	RecordWebhook(ctx context.Context, username string, at time.Time) error
}

// Result is the outcome of processing one webhook call, rendered back to
// the provider in the response body.
type Result struct {
	Outcome types.WebhookOutcome
}

// Reconciler processes billing-provider webhook events.
//
// Ordering invariants:
//  1. The shared-secret check runs before any other branch; a rejected
//     call performs no state change at all.
//  2. For purchases.updated, the webhook arrival is recorded before the
//     purchase batch is inspected, so an open wait window closes as soon
//     as any webhook for the user lands.
type Reconciler struct {
	subs   SubscriptionStore
	waits  WebhookRecorder
	secret types.SecretString
	clock  types.Clock
	logger *slog.Logger
}

// NewReconciler creates a Reconciler with the provided dependencies.
func NewReconciler(
	subs SubscriptionStore,
	waits WebhookRecorder,
	secret types.SecretString,
	clock types.Clock,
	logger *slog.Logger,
) *Reconciler {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		subs:   subs,
		waits:  waits,
		secret: secret,
		clock:  clock,
		logger: logger,
	}
}

// Process authenticates and dispatches a webhook event.
//
// Unknown event types are acknowledged with OutcomeUnsupported rather than
// rejected: the provider retries on failure statuses, and an event type we
// do not understand yet must not be retried forever.
func (r *Reconciler) Process(ctx context.Context, event *types.WebhookEvent) (*Result, error) {
	if subtle.ConstantTimeCompare([]byte(event.Password), []byte(r.secret.Unmask())) != 1 {
		r.logger.Warn("webhook rejected: bad credential",
			slog.String("type", event.Type),
		)
		return nil, types.NewAppError(types.ErrCodeWebhookUnauthorized, "invalid webhook credential", nil)
	}

	switch event.Type {
	case types.WebhookTypeTest:
		return &Result{Outcome: types.OutcomeTestPassed}, nil

	case types.WebhookTypePurchasesUpdated:
		return r.reconcilePurchases(ctx, event)

	default:
		r.logger.Info("unsupported webhook type acknowledged",
			slog.String("type", event.Type),
		)
		return &Result{Outcome: types.OutcomeUnsupported}, nil
	}
}

// reconcilePurchases applies a purchases.updated event.
func (r *Reconciler) reconcilePurchases(ctx context.Context, event *types.WebhookEvent) (*Result, error) {
	username := event.ApplicationUsername
	if username == "" {
		return nil, types.NewAppError(types.ErrCodeValidationMissingUsername,
			"purchases.updated requires applicationUsername", nil)
	}

	now := r.clock.Now()

	// Record the arrival first, independent of the batch contents. Even a
	// webhook carrying no usable purchase closes the client's wait window.
	if err := r.waits.RecordWebhook(ctx, username, now); err != nil {
		return nil, err
	}

	purchase, expiration, found := LatestPurchase(event.Purchases)
	if !found {
		removed, err := r.subs.Remove(ctx, username)
		if err != nil {
			return nil, err
		}
		outcome := types.OutcomeNoSubscription
		if removed {
			outcome = types.OutcomeRemoved
		}
		r.logger.Info("webhook carried no purchase",
			slog.String("username", username),
			slog.String("outcome", string(outcome)),
		)
		return &Result{Outcome: outcome}, nil
	}

	if err := r.subs.Update(ctx, username, expiration, purchase); err != nil {
		return nil, err
	}

	r.logger.Info("subscription reconciled",
		slog.String("username", username),
		slog.Time("expiration_date", expiration),
	)
	return &Result{Outcome: types.OutcomeUpdated}, nil
}

// LatestPurchase selects the authoritative purchase from an unordered
// batch: the one with the latest parseable expirationDate. Purchases
// without a readable expiration never win over one with a date; ties keep
// whichever was seen first (map order, unspecified). Returns found=false
// when the batch is empty or no purchase has a readable expiration.
func LatestPurchase(purchases map[string]types.PurchasePayload) (types.PurchasePayload, time.Time, bool) {
	var (
		best     types.PurchasePayload
		bestTime time.Time
		found    bool
	)
	for _, p := range purchases {
		exp, ok := p.ExpirationDate()
		if !ok {
			continue
		}
		if !found || exp.After(bestTime) {
			best = p
			bestTime = exp
			found = true
		}
	}
	return best, bestTime, found
}
