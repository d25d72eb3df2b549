package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PaymentProvider abstracts the payment provider, the external system of
// record for subscription billing state. Implementations use the provider's
// official SDK and normalize its quirks internally.
type PaymentProvider interface {
	// CreateCustomer creates a billing customer for an account, tagging it
	// with the account id, and returns the provider customer id.
	CreateCustomer(ctx context.Context, accountID uuid.UUID, email, name string) (string, error)

	// Subscription fetches live subscription state.
	// Returns ErrSubscriptionMissing when the provider reports the
	// subscription deleted or unknown.
	Subscription(ctx context.Context, subscriptionID string) (*ProviderSubscription, error)

	// LatestSubscription returns the most recent subscription for a billing
	// customer regardless of status, or ErrSubscriptionMissing when the
	// customer has none. Used by the resolver's repair path.
	LatestSubscription(ctx context.Context, customerID string) (*ProviderSubscription, error)

	// TagSubscription writes the account id into the provider-side
	// subscription metadata so later webhook events can be attributed.
	TagSubscription(ctx context.Context, subscriptionID string, accountID uuid.UUID) error

	// CreateCheckoutSession creates a hosted checkout session and returns the
	// redirect target.
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (*CheckoutSession, error)

	// CreatePortalSession returns a pre-authenticated billing portal URL for
	// an existing billing customer.
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)

	// ParseEvent verifies the webhook payload against the shared secret and
	// normalizes it. Returns ErrEventVerificationFailed or ErrEventUnparseable
	// before any field of the payload is trusted.
	ParseEvent(payload []byte, signature string) (*Event, error)
}

// ProviderSubscription is the normalized live view of a provider-side
// subscription.
type ProviderSubscription struct {
	ID               string
	CustomerID       string
	Status           Status
	PriceID          string
	TrialEnd         *time.Time
	CurrentPeriodEnd *time.Time
	// AccountID is the account tag from subscription metadata;
	// uuid.Nil when the subscription is untagged.
	AccountID uuid.UUID
}

// State returns the provider-reported field group for persistence.
func (s *ProviderSubscription) State() ProviderState {
	return ProviderState{
		Status:           s.Status,
		TrialEnd:         s.TrialEnd,
		CurrentPeriodEnd: s.CurrentPeriodEnd,
	}
}

// CheckoutSessionRequest carries everything needed to start a hosted
// checkout for a fixed plan.
type CheckoutSessionRequest struct {
	CustomerID string
	PriceID    string
	TrialDays  int
	AccountID  uuid.UUID // tagged on both the session and the subscription
	SuccessURL string
	CancelURL  string
}

// CheckoutSession is a created hosted checkout session.
type CheckoutSession struct {
	ID  string
	URL string
}

// EventType is the normalized lifecycle event type. Only the three types the
// reconciler acts on are mapped; everything else arrives as EventIgnored.
type EventType string

const (
	EventCheckoutCompleted   EventType = "checkout_completed"
	EventSubscriptionUpdated EventType = "subscription_updated"
	EventSubscriptionDeleted EventType = "subscription_deleted"
	EventIgnored             EventType = "ignored"
)

// Event is a verified, normalized webhook event.
type Event struct {
	ID            string
	Type          EventType
	ProviderEvent string // original provider event name

	// Checkout-session fields, populated for EventCheckoutCompleted.
	SubscriptionID string
	CustomerID     string
	CheckoutMode   string // only "subscription" mode is reconciled
	// AccountID is the metadata tag; uuid.Nil when attribution failed.
	AccountID uuid.UUID

	// Subscription is the event's embedded subscription object, populated
	// for subscription lifecycle events.
	Subscription *ProviderSubscription
}
