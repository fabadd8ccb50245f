package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tp(t time.Time) *time.Time { return &t }

func TestSubscription_View_Derivation(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		expiration  *time.Time
		wantActive  bool
		wantExpired bool
	}{
		{
			name:       "no expiration date is free tier",
			expiration: nil,
		},
		{
			name:       "future expiration is active",
			expiration: tp(now.Add(24 * time.Hour)),
			wantActive: true,
		},
		{
			name:        "past expiration is expired",
			expiration:  tp(now.Add(-24 * time.Hour)),
			wantExpired: true,
		},
		{
			name:       "expiration exactly now is neither active nor expired",
			expiration: tp(now),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := Subscription{Username: "alice", ExpirationDate: tt.expiration}
			v := sub.View(now)
			assert.Equal(t, tt.wantActive, v.IsActive)
			assert.Equal(t, tt.wantExpired, v.IsExpired)
			assert.False(t, v.IsActive && v.IsExpired, "never simultaneously active and expired")

			// Idempotent across repeated reads at the same instant.
			again := sub.View(now)
			assert.Equal(t, v, again)
		})
	}
}

func TestSubscription_EntitledAt(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.False(t, Subscription{}.EntitledAt(now))
	assert.False(t, Subscription{ExpirationDate: tp(now)}.EntitledAt(now))
	assert.False(t, Subscription{ExpirationDate: tp(now.Add(-time.Second))}.EntitledAt(now))
	assert.True(t, Subscription{ExpirationDate: tp(now.Add(time.Second))}.EntitledAt(now))
}

func TestWebhookWaitInfo_IsWaiting(t *testing.T) {
	start := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	tests := []struct {
		name string
		info WebhookWaitInfo
		want bool
	}{
		{
			name: "no wait window open",
			info: WebhookWaitInfo{Username: "alice"},
			want: false,
		},
		{
			name: "window open, no webhook ever received",
			info: WebhookWaitInfo{WaitStartDate: &start, WaitEndDate: &end},
			want: true,
		},
		{
			name: "window open, webhook predates window",
			info: WebhookWaitInfo{
				LastWebhookDate: tp(start.Add(-time.Minute)),
				WaitStartDate:   &start,
				WaitEndDate:     &end,
			},
			want: true,
		},
		{
			name: "window open, webhook landed inside window",
			info: WebhookWaitInfo{
				LastWebhookDate: tp(start.Add(10 * time.Minute)),
				WaitStartDate:   &start,
				WaitEndDate:     &end,
			},
			want: false,
		},
		{
			name: "window open, webhook after window end",
			info: WebhookWaitInfo{
				LastWebhookDate: tp(end.Add(time.Minute)),
				WaitStartDate:   &start,
				WaitEndDate:     &end,
			},
			want: true,
		},
		{
			name: "window retired by sweep, stale webhook remains",
			info: WebhookWaitInfo{LastWebhookDate: tp(start.Add(-time.Hour))},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.info.IsWaiting())
		})
	}
}

func TestPurchasePayload_ExpirationDate(t *testing.T) {
	t.Run("valid RFC3339 timestamp", func(t *testing.T) {
		p := PurchasePayload{"expirationDate": "2030-01-01T00:00:00Z", "productId": "monthly"}
		got, ok := p.ExpirationDate()
		require.True(t, ok)
		assert.Equal(t, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), got)
	})

	t.Run("missing key", func(t *testing.T) {
		_, ok := PurchasePayload{"productId": "monthly"}.ExpirationDate()
		assert.False(t, ok)
	})

	t.Run("non-string value", func(t *testing.T) {
		_, ok := PurchasePayload{"expirationDate": 12345}.ExpirationDate()
		assert.False(t, ok)
	})

	t.Run("unparseable timestamp", func(t *testing.T) {
		_, ok := PurchasePayload{"expirationDate": "next tuesday"}.ExpirationDate()
		assert.False(t, ok)
	})

	t.Run("offset timestamps normalize to UTC", func(t *testing.T) {
		p := PurchasePayload{"expirationDate": "2030-01-01T02:00:00+02:00"}
		got, ok := p.ExpirationDate()
		require.True(t, ok)
		assert.Equal(t, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), got)
	})
}

func TestPurchasePayload_ScanValue(t *testing.T) {
	t.Run("nil column leaves payload nil", func(t *testing.T) {
		var p PurchasePayload
		require.NoError(t, p.Scan(nil))
		assert.Nil(t, p)
	})

	t.Run("scans bytes from the driver", func(t *testing.T) {
		var p PurchasePayload
		require.NoError(t, p.Scan([]byte(`{"expirationDate":"2030-01-01T00:00:00Z"}`)))
		assert.Equal(t, "2030-01-01T00:00:00Z", p["expirationDate"])
	})

	t.Run("nil payload stores SQL NULL", func(t *testing.T) {
		var p PurchasePayload
		v, err := p.Value()
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("rejects unsupported scan types", func(t *testing.T) {
		var p PurchasePayload
		assert.Error(t, p.Scan(42))
	})
}
