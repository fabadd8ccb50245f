package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"subtrack/internal/types"
)

// SessionRepository provides data access for the sessions table. Sessions
// are insert-only: the demo has no logout or expiry, and a user may hold
// several live tokens at once.
type SessionRepository struct {
	db DBTX
}

// NewSessionRepository creates a new SessionRepository backed by the given
// database connection (pool or transaction).
func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create persists a new session row.
func (r *SessionRepository) Create(ctx context.Context, session *types.Session) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO sessions (token, username, created_at)
		 VALUES ($1, $2, $3)`,
		session.Token,
		session.Username,
		session.CreatedAt,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create session", err)
	}
	return nil
}

// GetByToken retrieves a session by exact token match.
// Returns not_found_session when no row matches, which callers must
// distinguish from a storage failure (internal_database_error).
func (r *SessionRepository) GetByToken(ctx context.Context, token string) (*types.Session, error) {
	row := r.db.QueryRow(ctx,
		`SELECT token, username, created_at
		 FROM sessions
		 WHERE token = $1`,
		token,
	)

	var s types.Session
	if err := row.Scan(&s.Token, &s.Username, &s.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundSession, "session not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve session", err)
	}
	return &s, nil
}
