package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/google/uuid"
)

// AccountDirectory exposes the account profile fields checkout needs.
// The identity system owns accounts; billing only reads them.
type AccountDirectory interface {
	// GetAccount returns ErrAccountNotFound for unknown ids.
	GetAccount(ctx context.Context, accountID uuid.UUID) (email, name string, err error)
}

// CheckoutConfig holds checkout service configuration.
type CheckoutConfig struct {
	// DefaultOrigin is the fallback return origin used when the caller
	// supplies no or a malformed return URL.
	DefaultOrigin string `env:"BILLING_DEFAULT_ORIGIN" envDefault:"https://leadhustle.pro"`
}

// CheckoutService creates checkout and billing-portal sessions for accounts.
type CheckoutService struct {
	store    RecordStore
	provider PaymentProvider
	accounts AccountDirectory
	plan     Plan
	cfg      CheckoutConfig
	log      *slog.Logger
}

// NewCheckoutService creates a CheckoutService bound to a single catalog
// plan. Panics on nil dependencies to fail fast during initialization.
func NewCheckoutService(store RecordStore, provider PaymentProvider, accounts AccountDirectory, plan Plan, cfg CheckoutConfig, log *slog.Logger) *CheckoutService {
	if store == nil {
		panic("billing: RecordStore is required")
	}
	if provider == nil {
		panic("billing: PaymentProvider is required")
	}
	if accounts == nil {
		panic("billing: AccountDirectory is required")
	}
	if plan.PriceID == "" {
		panic("billing: checkout plan must carry a price id")
	}
	if log == nil {
		log = slog.Default()
	}
	return &CheckoutService{store: store, provider: provider, accounts: accounts, plan: plan, cfg: cfg, log: log}
}

// StartCheckout creates a hosted checkout session for an account that has no
// subscription yet and returns the redirect URL.
//
// The billing customer id is persisted as soon as it is created so a crash
// before session creation does not orphan the customer; a retry reuses it.
// The local record is optimistically upserted to provisional trialing and is
// corrected by the next authoritative read if checkout is abandoned.
func (s *CheckoutService) StartCheckout(ctx context.Context, accountID uuid.UUID, returnURL string) (string, error) {
	email, name, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return "", fmt.Errorf("billing: load account %s: %w", accountID, err)
	}

	customerID, err := s.ensureCustomer(ctx, accountID, email, name)
	if err != nil {
		return "", err
	}

	origin := s.returnOrigin(returnURL)
	session, err := s.provider.CreateCheckoutSession(ctx, CheckoutSessionRequest{
		CustomerID: customerID,
		PriceID:    s.plan.PriceID,
		TrialDays:  s.plan.TrialDays,
		AccountID:  accountID,
		SuccessURL: origin + "/dashboard?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  origin + "/welcome?canceled=true",
	})
	if err != nil {
		return "", errors.Join(ErrProviderUnavailable, err)
	}

	// Optimistic local hint only: the provider never confirms an abandoned
	// session, so this row stays provisional until a webhook or resolve
	// replaces it with provider truth.
	provisional := true
	state := ProviderState{Status: StatusTrialing}
	if err := s.store.Upsert(ctx, accountID, RecordPatch{
		PriceID:     &s.plan.PriceID,
		State:       &state,
		Provisional: &provisional,
	}); err != nil {
		// The session already exists; a failed hint write only costs a
		// slightly staler first gate decision.
		s.log.WarnContext(ctx, "failed to write optimistic trialing hint",
			slog.String("account_id", accountID.String()),
			slog.Any("error", err))
	}

	s.log.InfoContext(ctx, "checkout session created",
		slog.String("account_id", accountID.String()),
		slog.String("session_id", session.ID))

	return session.URL, nil
}

// PortalSession returns a pre-authenticated billing portal URL for an
// account with an existing billing customer.
func (s *CheckoutService) PortalSession(ctx context.Context, accountID uuid.UUID, returnURL string) (string, error) {
	rec, err := s.store.Get(ctx, accountID)
	if err != nil {
		return "", fmt.Errorf("billing: read record for %s: %w", accountID, err)
	}
	if rec.CustomerID == "" {
		return "", ErrRecordNotFound
	}

	target := returnURL
	if _, err := url.ParseRequestURI(target); err != nil || target == "" {
		target = s.cfg.DefaultOrigin + "/dashboard"
	}

	portalURL, err := s.provider.CreatePortalSession(ctx, rec.CustomerID, target)
	if err != nil {
		return "", errors.Join(ErrProviderUnavailable, err)
	}
	return portalURL, nil
}

// ensureCustomer returns the account's billing customer id, creating and
// persisting one when absent.
func (s *CheckoutService) ensureCustomer(ctx context.Context, accountID uuid.UUID, email, name string) (string, error) {
	rec, err := s.store.Get(ctx, accountID)
	if err != nil && !errors.Is(err, ErrRecordNotFound) {
		return "", fmt.Errorf("billing: read record for %s: %w", accountID, err)
	}
	if rec != nil && rec.CustomerID != "" {
		return rec.CustomerID, nil
	}

	customerID, err := s.provider.CreateCustomer(ctx, accountID, email, name)
	if err != nil {
		return "", errors.Join(ErrProviderUnavailable, err)
	}

	// Persist immediately: losing this id would create duplicate customers
	// on checkout retry.
	if err := s.store.Upsert(ctx, accountID, RecordPatch{CustomerID: &customerID}); err != nil {
		return "", fmt.Errorf("billing: persist customer id for %s: %w", accountID, err)
	}
	return customerID, nil
}

// returnOrigin validates the caller-supplied return URL and reduces it to an
// origin, falling back to the configured default.
func (s *CheckoutService) returnOrigin(returnURL string) string {
	if returnURL == "" {
		return s.cfg.DefaultOrigin
	}
	u, err := url.Parse(returnURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return s.cfg.DefaultOrigin
	}
	return u.Scheme + "://" + u.Host
}
