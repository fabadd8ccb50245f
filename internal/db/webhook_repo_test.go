package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"subtrack/internal/types"
)

func TestWebhookWaitRepository_Merge_PassesNilForUntouchedFields(t *testing.T) {
	db := new(mockDBTX)
	repo := NewWebhookWaitRepository(db, nil)

	webhookAt := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	err := repo.Merge(context.Background(), "alice", types.WebhookWaitPatch{
		LastWebhookDate: &webhookAt,
	})
	require.NoError(t, err)

	// The wait bounds travel as nil so the COALESCE keeps stored values.
	db.AssertCalled(t, "Exec", mock.Anything, mock.Anything,
		[]any{"alice", &webhookAt, (*time.Time)(nil), (*time.Time)(nil)})
}

func TestWebhookWaitRepository_Merge_DBError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewWebhookWaitRepository(db, nil)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.CommandTag{}, errors.New("connection refused"))

	err := repo.Merge(context.Background(), "alice", types.WebhookWaitPatch{})
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
}

func TestWebhookWaitRepository_Get_Existing(t *testing.T) {
	db := new(mockDBTX)
	repo := NewWebhookWaitRepository(db, nil)

	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{
			scanFn: func(dest ...any) error {
				*dest[0].(*string) = "alice"
				*dest[1].(**time.Time) = nil
				*dest[2].(**time.Time) = &start
				*dest[3].(**time.Time) = &end
				return nil
			},
		})

	info, err := repo.Get(context.Background(), "alice")
	require.NoError(t, err)
	assert.Nil(t, info.LastWebhookDate)
	require.NotNil(t, info.WaitStartDate)
	assert.Equal(t, start, *info.WaitStartDate)
	assert.True(t, info.IsWaiting())
}

func TestWebhookWaitRepository_Get_MissingRowIsEmptyState(t *testing.T) {
	db := new(mockDBTX)
	repo := NewWebhookWaitRepository(db, nil)

	db.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanErr: pgx.ErrNoRows})

	info, err := repo.Get(context.Background(), "bob")
	require.NoError(t, err, "absent wait state is the empty default, never an error")
	assert.Equal(t, "bob", info.Username)
	assert.False(t, info.IsWaiting())
}

func TestWebhookWaitRepository_SweepExpired(t *testing.T) {
	db := new(mockDBTX)
	repo := NewWebhookWaitRepository(db, nil)

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("UPDATE 3"), nil)

	retired, err := repo.SweepExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), retired)

	db.AssertCalled(t, "Exec", mock.Anything, mock.Anything, []any{now})
}

func TestWebhookWaitRepository_SweepExpired_DBError(t *testing.T) {
	db := new(mockDBTX)
	repo := NewWebhookWaitRepository(db, nil)

	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.CommandTag{}, errors.New("deadlock detected"))

	_, err := repo.SweepExpired(context.Background(), time.Now())
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
}
