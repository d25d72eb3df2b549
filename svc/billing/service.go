// Package billing exposes subscription status, checkout and webhook
// endpoints over HTTP.
package billing

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/leadhustle/platform/internal/httpx"
	"github.com/leadhustle/platform/pkg/billing"
	"github.com/leadhustle/platform/pkg/gate"
	"github.com/leadhustle/platform/pkg/identity"
	"github.com/leadhustle/platform/pkg/logger"
)

// Stripe sends webhook payloads well under this; anything larger is not a
// webhook.
const maxWebhookBody = 1 << 20

// Service wires the billing core to chi handlers.
type Service struct {
	resolver   *billing.Resolver
	checkout   *billing.CheckoutService
	reconciler *billing.Reconciler
	provider   billing.PaymentProvider
	log        *slog.Logger
}

// NewService panics on nil dependencies.
func NewService(
	resolver *billing.Resolver,
	checkout *billing.CheckoutService,
	reconciler *billing.Reconciler,
	provider billing.PaymentProvider,
	log *slog.Logger,
) *Service {
	if resolver == nil || checkout == nil || reconciler == nil || provider == nil {
		panic("billing service: all dependencies are required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		resolver:   resolver,
		checkout:   checkout,
		reconciler: reconciler,
		provider:   provider,
		log:        log,
	}
}

// Router mounts the billing endpoints. auth guards everything except the
// webhook, which authenticates by signature instead of session.
func (s *Service) Router(auth func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(auth)
		r.Post("/status", s.handleStatus)
		r.Post("/checkout", s.handleCheckout)
		r.Post("/portal", s.handlePortal)
	})
	r.Post("/webhook", s.handleWebhook)
	return r
}

// statusResponse carries the snapshot plus the access-gate decision for it,
// so clients route on the server's verdict instead of re-deriving it.
type statusResponse struct {
	billing.Snapshot
	RouteClass string `json:"routeClass"`
}

func (s *Service) handleStatus(w http.ResponseWriter, r *http.Request) {
	accountID, ok := identity.AccountIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "unauthorized", "session required")
		return
	}

	snap, err := s.resolver.Resolve(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, billing.ErrProviderUnavailable) {
			s.log.ErrorContext(r.Context(), "status resolution failed upstream",
				logger.AccountID(accountID.String()), logger.Error(err), logger.Component("billing_http"))
			httpx.Error(w, http.StatusBadGateway, "provider_unavailable", "payment provider is unreachable")
			return
		}
		s.log.ErrorContext(r.Context(), "status resolution failed",
			logger.AccountID(accountID.String()), logger.Error(err), logger.Component("billing_http"))
		httpx.Error(w, http.StatusInternalServerError, "internal_error", "failed to resolve subscription status")
		return
	}
	httpx.JSON(w, http.StatusOK, statusResponse{
		Snapshot:   snap,
		RouteClass: gate.Decide(true, &snap).String(),
	})
}

type checkoutRequest struct {
	ReturnURL string `json:"returnUrl"`
}

type redirectResponse struct {
	RedirectURL string `json:"redirectUrl"`
}

func (s *Service) handleCheckout(w http.ResponseWriter, r *http.Request) {
	accountID, ok := identity.AccountIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "unauthorized", "session required")
		return
	}

	var req checkoutRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "bad_request", "malformed request body")
		return
	}

	url, err := s.checkout.StartCheckout(r.Context(), accountID, req.ReturnURL)
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrAccountNotFound), errors.Is(err, identity.ErrAccountNotFound):
			httpx.Error(w, http.StatusNotFound, "account_not_found", "account does not exist")
		case errors.Is(err, billing.ErrProviderUnavailable):
			httpx.Error(w, http.StatusBadGateway, "provider_unavailable", "payment provider is unreachable")
		default:
			s.log.ErrorContext(r.Context(), "checkout failed",
				logger.AccountID(accountID.String()), logger.Error(err), logger.Component("billing_http"))
			httpx.Error(w, http.StatusInternalServerError, "internal_error", "failed to start checkout")
		}
		return
	}
	httpx.JSON(w, http.StatusOK, redirectResponse{RedirectURL: url})
}

func (s *Service) handlePortal(w http.ResponseWriter, r *http.Request) {
	accountID, ok := identity.AccountIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "unauthorized", "session required")
		return
	}

	var req checkoutRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "bad_request", "malformed request body")
		return
	}

	url, err := s.checkout.PortalSession(r.Context(), accountID, req.ReturnURL)
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrRecordNotFound):
			httpx.Error(w, http.StatusBadRequest, "no_billing_customer", "account has no billing customer yet")
		case errors.Is(err, billing.ErrProviderUnavailable):
			httpx.Error(w, http.StatusBadGateway, "provider_unavailable", "payment provider is unreachable")
		default:
			s.log.ErrorContext(r.Context(), "portal session failed",
				logger.AccountID(accountID.String()), logger.Error(err), logger.Component("billing_http"))
			httpx.Error(w, http.StatusInternalServerError, "internal_error", "failed to open billing portal")
		}
		return
	}
	httpx.JSON(w, http.StatusOK, redirectResponse{RedirectURL: url})
}

// handleWebhook verifies the provider signature, normalizes the event and
// applies it. A non-2xx status makes the provider redeliver, so transient
// failures return 502 while verification failures return 400 and are gone
// for good.
func (s *Service) handleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "bad_request", "unreadable payload")
		return
	}

	event, err := s.provider.ParseEvent(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		s.log.WarnContext(r.Context(), "webhook rejected",
			logger.Error(err), logger.Component("billing_http"))
		httpx.Error(w, http.StatusBadRequest, "invalid_event", "event verification failed")
		return
	}

	if err := s.reconciler.Apply(r.Context(), event); err != nil {
		s.log.ErrorContext(r.Context(), "webhook reconciliation failed",
			slog.String("event_id", event.ID), logger.Error(err), logger.Component("billing_http"))
		httpx.Error(w, http.StatusBadGateway, "reconciliation_failed", "event could not be applied")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"received": true})
}
