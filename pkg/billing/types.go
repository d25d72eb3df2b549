package billing

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the provider-reported state of a subscription.
// Values mirror the payment provider's vocabulary verbatim so that webhook
// payloads and live lookups can be persisted without translation.
type Status string

const (
	StatusNoSubscription    Status = "no_subscription"
	StatusTrialing          Status = "trialing"
	StatusActive            Status = "active"
	StatusPastDue           Status = "past_due"
	StatusCanceled          Status = "canceled"
	StatusIncomplete        Status = "incomplete"
	StatusIncompleteExpired Status = "incomplete_expired"
	StatusUnpaid            Status = "unpaid"
)

// GrantsAccess reports whether the status grants protected-route access.
// Only trialing and active subscriptions count as active in the access sense.
func (s Status) GrantsAccess() bool {
	return s == StatusTrialing || s == StatusActive
}

// Record is the persisted local mirror of an account's subscription state.
// One record per account, upserted, never hard-deleted; a canceled
// subscription remains as history.
type Record struct {
	AccountID        uuid.UUID
	CustomerID       string // provider customer id, empty until first checkout
	SubscriptionID   string // provider subscription id, empty until one exists
	Status           Status
	PriceID          string
	TrialEnd         *time.Time
	CurrentPeriodEnd *time.Time
	// Provisional marks the optimistic trialing write made at checkout-session
	// creation, before the provider has confirmed anything. Cleared by any
	// provider-sourced write.
	Provisional bool
	UpdatedAt   time.Time
}

// Snapshot is the resolved, read-only view of an account's subscription
// status returned to callers. Timestamps marshal as RFC3339 or null.
type Snapshot struct {
	Active           bool       `json:"active"`
	Status           Status     `json:"status"`
	TrialEnd         *time.Time `json:"trialEnd"`
	CurrentPeriodEnd *time.Time `json:"currentPeriodEnd"`
}

// NoSubscription returns the canonical snapshot for an account without any
// billing history. It is a valid result, not an error.
func NoSubscription() Snapshot {
	return Snapshot{Active: false, Status: StatusNoSubscription}
}

// ProviderState is the whole provider-reported field group. Every write of
// provider truth sets the group atomically so concurrent writers can never
// produce a hybrid of two different provider reads.
type ProviderState struct {
	Status           Status
	TrialEnd         *time.Time
	CurrentPeriodEnd *time.Time
}

// SnapshotOf builds the caller-facing snapshot for a provider state.
func SnapshotOf(state ProviderState) Snapshot {
	return Snapshot{
		Active:           state.Status.GrantsAccess(),
		Status:           state.Status,
		TrialEnd:         state.TrialEnd,
		CurrentPeriodEnd: state.CurrentPeriodEnd,
	}
}
