package db

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"subtrack/internal/types"
)

// SubscriptionRepository manages the durable per-user subscription record.
//
// Key invariants:
//   - Update is a full-replace upsert: the caller always supplies the
//     complete new state, and an existing row is overwritten in place.
//     This is deliberately different from WebhookWaitRepository's
//     partial-merge semantics.
//   - "No subscription" is expressed by removing the row, so Fetch can
//     report the zero-value free-tier record and Remove can report whether
//     anything was actually deleted.
type SubscriptionRepository struct {
	db     DBTX
	logger *slog.Logger
}

// NewSubscriptionRepository creates a new SubscriptionRepository backed by
// the given database connection (pool or transaction).
func NewSubscriptionRepository(db DBTX, logger *slog.Logger) *SubscriptionRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubscriptionRepository{db: db, logger: logger}
}

// Fetch returns the stored subscription, or the zero-value record (nil
// expiration, nil purchase) when none exists. An absent row is the default
// free-tier state, not an error.
func (r *SubscriptionRepository) Fetch(ctx context.Context, username string) (types.Subscription, error) {
	row := r.db.QueryRow(ctx,
		`SELECT username, expiration_date, purchase
		 FROM subscriptions
		 WHERE username = $1`,
		username,
	)

	var s types.Subscription
	if err := row.Scan(&s.Username, &s.ExpirationDate, &s.Purchase); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.Subscription{Username: username}, nil
		}
		return types.Subscription{}, types.NewAppError(types.ErrCodeInternalDB, "failed to fetch subscription", err)
	}
	return s, nil
}

// Update stores the authoritative purchase for the user with a full-replace
// atomic upsert. The expiration column is denormalized out of the payload
// so the read path can derive activity status without parsing JSON.
func (r *SubscriptionRepository) Update(ctx context.Context, username string, expiration time.Time, purchase types.PurchasePayload) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO subscriptions (username, expiration_date, purchase, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (username) DO UPDATE
		 SET expiration_date = EXCLUDED.expiration_date,
		     purchase        = EXCLUDED.purchase,
		     updated_at      = NOW()`,
		username,
		expiration,
		purchase,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to update subscription", err)
	}

	r.logger.Info("subscription updated",
		slog.String("username", username),
		slog.Time("expiration_date", expiration),
	)
	return nil
}

// Remove deletes the user's subscription row and reports whether a row
// existed. Used when reconciliation determines the user has no remaining
// valid purchase; the caller tells the provider REMOVED vs NO_SUBSCRIPTION
// based on the return value.
func (r *SubscriptionRepository) Remove(ctx context.Context, username string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM subscriptions WHERE username = $1`,
		username,
	)
	if err != nil {
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to remove subscription", err)
	}

	removed := tag.RowsAffected() > 0
	if removed {
		r.logger.Info("subscription removed", slog.String("username", username))
	}
	return removed, nil
}
