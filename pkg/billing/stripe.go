package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	stripe "github.com/stripe/stripe-go/v82"
	portalsession "github.com/stripe/stripe-go/v82/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/customer"
	"github.com/stripe/stripe-go/v82/subscription"
	"github.com/stripe/stripe-go/v82/webhook"
)

// metadataAccountKey is the metadata field carrying the account id on
// provider-side customers, sessions and subscriptions. It is how webhook
// events are attributed before the local customer mapping has been read.
const metadataAccountKey = "account_id"

// StripeConfig holds configuration for the Stripe payment provider.
type StripeConfig struct {
	SecretKey     string `env:"STRIPE_SECRET_KEY,required"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET,required"`
}

// StripeProvider implements PaymentProvider using the Stripe API.
type StripeProvider struct {
	webhookSecret string
}

// NewStripeProvider creates a Stripe payment provider.
func NewStripeProvider(cfg StripeConfig) (*StripeProvider, error) {
	if cfg.SecretKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.WebhookSecret == "" {
		return nil, ErrMissingWebhookSecret
	}
	stripe.Key = cfg.SecretKey
	return &StripeProvider{webhookSecret: cfg.WebhookSecret}, nil
}

// CreateCustomer creates a Stripe customer tagged with the account id.
func (p *StripeProvider) CreateCustomer(_ context.Context, accountID uuid.UUID, email, name string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
	}
	if name != "" {
		params.Name = stripe.String(name)
	}
	params.AddMetadata(metadataAccountKey, accountID.String())

	c, err := customer.New(params)
	if err != nil {
		return "", fmt.Errorf("billing: create stripe customer: %w", err)
	}
	return c.ID, nil
}

// Subscription fetches live subscription state from Stripe.
func (p *StripeProvider) Subscription(_ context.Context, subscriptionID string) (*ProviderSubscription, error) {
	sub, err := subscription.Get(subscriptionID, nil)
	if err != nil {
		if isResourceMissing(err) {
			return nil, errors.Join(ErrSubscriptionMissing, err)
		}
		return nil, fmt.Errorf("billing: retrieve stripe subscription %s: %w", subscriptionID, err)
	}
	return normalizeSubscription(sub), nil
}

// LatestSubscription returns the customer's most recent subscription of any
// status, or ErrSubscriptionMissing when none exists.
func (p *StripeProvider) LatestSubscription(_ context.Context, customerID string) (*ProviderSubscription, error) {
	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String("all"),
	}
	params.Limit = stripe.Int64(1)

	iter := subscription.List(params)
	if iter.Next() {
		return normalizeSubscription(iter.Subscription()), nil
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("billing: list stripe subscriptions for %s: %w", customerID, err)
	}
	return nil, ErrSubscriptionMissing
}

// TagSubscription writes the account id into the subscription metadata.
func (p *StripeProvider) TagSubscription(_ context.Context, subscriptionID string, accountID uuid.UUID) error {
	params := &stripe.SubscriptionParams{}
	params.AddMetadata(metadataAccountKey, accountID.String())
	if _, err := subscription.Update(subscriptionID, params); err != nil {
		return fmt.Errorf("billing: tag stripe subscription %s: %w", subscriptionID, err)
	}
	return nil
}

// CreateCheckoutSession creates a hosted Stripe Checkout session in
// subscription mode, tagging both the session and the resulting
// subscription with the account id.
func (p *StripeProvider) CreateCheckoutSession(_ context.Context, req CheckoutSessionRequest) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Customer: stripe.String(req.CustomerID),
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(req.PriceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	params.AddMetadata(metadataAccountKey, req.AccountID.String())
	if req.TrialDays > 0 {
		params.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{
			TrialPeriodDays: stripe.Int64(int64(req.TrialDays)),
			Metadata: map[string]string{
				metadataAccountKey: req.AccountID.String(),
			},
		}
	} else {
		params.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				metadataAccountKey: req.AccountID.String(),
			},
		}
	}

	session, err := checkoutsession.New(params)
	if err != nil {
		return nil, fmt.Errorf("billing: create stripe checkout session: %w", err)
	}
	if session.URL == "" {
		return nil, ErrNoCheckoutURL
	}
	return &CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

// CreatePortalSession returns a pre-authenticated billing portal URL.
func (p *StripeProvider) CreatePortalSession(_ context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	session, err := portalsession.New(params)
	if err != nil {
		return "", fmt.Errorf("billing: create stripe portal session: %w", err)
	}
	if session.URL == "" {
		return "", ErrNoPortalURL
	}
	return session.URL, nil
}

// ParseEvent verifies the payload signature and normalizes the event. No
// payload field is trusted before verification succeeds.
func (p *StripeProvider) ParseEvent(payload []byte, signature string) (*Event, error) {
	stripeEvent, err := webhook.ConstructEvent(payload, signature, p.webhookSecret)
	if err != nil {
		return nil, errors.Join(ErrEventVerificationFailed, err)
	}

	event := &Event{
		ID:            stripeEvent.ID,
		ProviderEvent: string(stripeEvent.Type),
		Type:          EventIgnored,
	}

	switch stripeEvent.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(stripeEvent.Data.Raw, &session); err != nil {
			return nil, errors.Join(ErrEventUnparseable, err)
		}
		event.Type = EventCheckoutCompleted
		event.CheckoutMode = string(session.Mode)
		if session.Customer != nil {
			event.CustomerID = session.Customer.ID
		}
		if session.Subscription != nil {
			event.SubscriptionID = session.Subscription.ID
		}
		event.AccountID = accountTag(session.Metadata)

	case "customer.subscription.updated":
		sub, err := unmarshalSubscription(stripeEvent.Data.Raw)
		if err != nil {
			return nil, err
		}
		event.Type = EventSubscriptionUpdated
		event.Subscription = sub

	case "customer.subscription.deleted":
		sub, err := unmarshalSubscription(stripeEvent.Data.Raw)
		if err != nil {
			return nil, err
		}
		event.Type = EventSubscriptionDeleted
		event.Subscription = sub
	}

	return event, nil
}

func unmarshalSubscription(raw json.RawMessage) (*ProviderSubscription, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, errors.Join(ErrEventUnparseable, err)
	}
	return normalizeSubscription(&sub), nil
}

// normalizeSubscription maps a Stripe subscription onto the provider-neutral
// shape. Period end lives on the subscription item in current Stripe API
// versions.
func normalizeSubscription(sub *stripe.Subscription) *ProviderSubscription {
	out := &ProviderSubscription{
		ID:        sub.ID,
		Status:    Status(sub.Status),
		TrialEnd:  unixTime(sub.TrialEnd),
		AccountID: accountTag(sub.Metadata),
	}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		out.CurrentPeriodEnd = unixTime(item.CurrentPeriodEnd)
		if item.Price != nil {
			out.PriceID = item.Price.ID
		}
	}
	return out
}

func accountTag(metadata map[string]string) uuid.UUID {
	raw, ok := metadata[metadataAccountKey]
	if !ok {
		return uuid.Nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func unixTime(ts int64) *time.Time {
	if ts == 0 {
		return nil
	}
	t := time.Unix(ts, 0).UTC()
	return &t
}

func isResourceMissing(err error) bool {
	var stripeErr *stripe.Error
	return errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeResourceMissing
}
