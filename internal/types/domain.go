// Package types defines the shared domain model for the subtrack service:
// sessions, subscriptions, webhook wait state, and the error taxonomy.
// It has no dependencies on other internal packages so that every layer
// (repositories, services, handlers) can share these definitions freely.
package types

import (
	"time"
)

// Session maps an opaque authentication token to a username. Sessions are
// immutable once created and never expire; a user may hold any number of
// live tokens at once (logins are not deduplicated).
type Session struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

// Subscription is the durable per-user subscription record. The zero-value
// record (nil ExpirationDate, nil Purchase) is the default "free tier"
// state, not an error.
//
// ExpirationDate always originates from the most recent reconciliation
// decision and mirrors the expirationDate inside Purchase.
type Subscription struct {
	Username       string          `json:"username"`
	ExpirationDate *time.Time      `json:"expirationDate"`
	Purchase       PurchasePayload `json:"purchase"`
}

// SubscriptionView is a Subscription with activity status derived at read
// time. It is what the serving layer returns; the derived fields are never
// stored.
type SubscriptionView struct {
	Subscription
	IsActive  bool `json:"isActive"`
	IsExpired bool `json:"isExpired"`
}

// View derives the activity status of the subscription as of now.
// An expiration exactly equal to now is neither active nor expired; the
// strict comparisons preserve that boundary.
func (s Subscription) View(now time.Time) SubscriptionView {
	v := SubscriptionView{Subscription: s}
	if s.ExpirationDate != nil {
		v.IsActive = s.ExpirationDate.After(now)
		v.IsExpired = s.ExpirationDate.Before(now)
	}
	return v
}

// EntitledAt reports whether the subscription grants access at the given
// instant: an expiration date must be present and strictly in the future.
func (s Subscription) EntitledAt(now time.Time) bool {
	return s.ExpirationDate != nil && s.ExpirationDate.After(now)
}

// WebhookWaitInfo is the per-user webhook wait state. All three dates are
// optional; absent fields serialize as null to match the legacy wire
// contract.
type WebhookWaitInfo struct {
	Username        string     `json:"username"`
	LastWebhookDate *time.Time `json:"lastWebhookDate"`
	WaitStartDate   *time.Time `json:"waitStartDate"`
	WaitEndDate     *time.Time `json:"waitEndDate"`
}

// IsWaiting derives whether the user is inside an open wait window with no
// qualifying webhook received yet. It is true when a window is open and the
// last webhook either never arrived or landed outside the window bounds.
// The value is derived, never stored, so it needs no invalidation.
func (w WebhookWaitInfo) IsWaiting() bool {
	if w.WaitStartDate == nil {
		return false
	}
	if w.LastWebhookDate == nil {
		return true
	}
	if w.LastWebhookDate.Before(*w.WaitStartDate) {
		return true
	}
	return w.WaitEndDate != nil && w.LastWebhookDate.After(*w.WaitEndDate)
}

// WebhookWaitPatch is a partial update for WebhookWaitInfo. Nil fields keep
// their previously stored values (COALESCE merge); only non-nil fields are
// written. This is intentionally different from the Subscription store's
// full-replace update.
type WebhookWaitPatch struct {
	LastWebhookDate *time.Time
	WaitStartDate   *time.Time
	WaitEndDate     *time.Time
}

// UserProfile is the merged read model served by GET /me: session identity,
// subscription with derived status, raw webhook wait info, and the derived
// polling hint.
type UserProfile struct {
	Username            string           `json:"username"`
	Subscription        SubscriptionView `json:"subscription"`
	WebhookInfo         WebhookWaitInfo  `json:"webhookInfo"`
	IsWaitingForWebhook bool             `json:"isWaitingForWebhook"`
}

// WebhookEvent is an inbound notification from the billing provider,
// already parsed out of the transport envelope.
type WebhookEvent struct {
	Password            string                     `json:"password"`
	Type                string                     `json:"type"`
	ApplicationUsername string                     `json:"applicationUsername"`
	Purchases           map[string]PurchasePayload `json:"purchases"`
}

// Webhook event types understood by the reconciliation engine. Anything
// else is acknowledged as unsupported so the provider does not retry.
const (
	WebhookTypeTest             = "TEST"
	WebhookTypePurchasesUpdated = "purchases.updated"
)

// WebhookOutcome identifies what a webhook call did to the stored state.
type WebhookOutcome string

const (
	OutcomeTestPassed     WebhookOutcome = "TEST_PASSED"
	OutcomeUnsupported    WebhookOutcome = "UNSUPPORTED"
	OutcomeUpdated        WebhookOutcome = "UPDATED"
	OutcomeRemoved        WebhookOutcome = "REMOVED"
	OutcomeNoSubscription WebhookOutcome = "NO_SUBSCRIPTION"
)

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the real system time (always UTC).
type RealClock struct{}

// Now returns the current time in UTC.
func (RealClock) Now() time.Time { return time.Now().UTC() }
