package db

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"subtrack/internal/types"
)

// WebhookWaitRepository manages the per-user webhook wait state.
//
// Unlike the subscription store, writes here are partial merges: Merge only
// touches the fields the patch carries, leaving the rest at their stored
// values. The COALESCE in the upsert makes each merge atomic per row, so a
// wait window opened by one request and a webhook recorded by another never
// clobber each other.
type WebhookWaitRepository struct {
	db     DBTX
	logger *slog.Logger
}

// NewWebhookWaitRepository creates a new WebhookWaitRepository backed by the
// given database connection (pool or transaction).
func NewWebhookWaitRepository(db DBTX, logger *slog.Logger) *WebhookWaitRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookWaitRepository{db: db, logger: logger}
}

// Merge upserts the wait state for a user, keeping the stored value for
// every field the patch leaves nil.
func (r *WebhookWaitRepository) Merge(ctx context.Context, username string, patch types.WebhookWaitPatch) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO webhook_waits (username, last_webhook_date, wait_start_date, wait_end_date)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (username) DO UPDATE
		 SET last_webhook_date = COALESCE(EXCLUDED.last_webhook_date, webhook_waits.last_webhook_date),
		     wait_start_date   = COALESCE(EXCLUDED.wait_start_date, webhook_waits.wait_start_date),
		     wait_end_date     = COALESCE(EXCLUDED.wait_end_date, webhook_waits.wait_end_date)`,
		username,
		patch.LastWebhookDate,
		patch.WaitStartDate,
		patch.WaitEndDate,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to merge webhook wait state", err)
	}
	return nil
}

// Get returns the stored wait state, or the empty default when none exists.
// An absent row is never an error.
func (r *WebhookWaitRepository) Get(ctx context.Context, username string) (types.WebhookWaitInfo, error) {
	row := r.db.QueryRow(ctx,
		`SELECT username, last_webhook_date, wait_start_date, wait_end_date
		 FROM webhook_waits
		 WHERE username = $1`,
		username,
	)

	var w types.WebhookWaitInfo
	if err := row.Scan(&w.Username, &w.LastWebhookDate, &w.WaitStartDate, &w.WaitEndDate); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.WebhookWaitInfo{Username: username}, nil
		}
		return types.WebhookWaitInfo{}, types.NewAppError(types.ErrCodeInternalDB, "failed to read webhook wait state", err)
	}
	return w, nil
}

// SweepExpired retires every wait window whose deadline has passed: the
// window bounds are nulled out while last_webhook_date stays intact. A
// single UPDATE keeps the sweep atomic per affected row, so it can run
// concurrently with live merges. Returns the number of retired windows.
func (r *WebhookWaitRepository) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE webhook_waits
		 SET wait_start_date = NULL,
		     wait_end_date   = NULL
		 WHERE wait_end_date <= $1`,
		now,
	)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to sweep expired wait windows", err)
	}

	retired := tag.RowsAffected()
	if retired > 0 {
		r.logger.Info("expired wait windows retired", slog.Int64("count", retired))
	}
	return retired, nil
}
