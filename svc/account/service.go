// Package account exposes registration, login and logout over HTTP.
package account

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/leadhustle/platform/internal/httpx"
	"github.com/leadhustle/platform/pkg/identity"
	"github.com/leadhustle/platform/pkg/logger"
)

// Service wires the identity core to chi handlers.
type Service struct {
	accounts  *identity.Service
	tokens    *identity.TokenService
	cookieTTL time.Duration
	secure    bool
	log       *slog.Logger
}

// Config is the environment-driven account service setup.
type Config struct {
	CookieTTL     time.Duration `env:"SESSION_COOKIE_TTL" envDefault:"720h"`
	SecureCookies bool          `env:"SESSION_COOKIE_SECURE" envDefault:"true"`
}

// NewService panics on nil dependencies.
func NewService(accounts *identity.Service, tokens *identity.TokenService, cfg Config, log *slog.Logger) *Service {
	if accounts == nil || tokens == nil {
		panic("account service: all dependencies are required")
	}
	if log == nil {
		log = slog.Default()
	}
	ttl := cfg.CookieTTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Service{
		accounts:  accounts,
		tokens:    tokens,
		cookieTTL: ttl,
		secure:    cfg.SecureCookies,
		log:       log,
	}
}

// Router mounts the auth endpoints.
func (s *Service) Router() chi.Router {
	r := chi.NewRouter()
	r.Post("/auth/register", s.handleRegister)
	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/logout", s.handleLogout)
	return r
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	AccountID uuid.UUID `json:"accountId"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Token     string    `json:"token"`
}

func (s *Service) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "bad_request", "malformed request body")
		return
	}

	account, err := s.accounts.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrEmailTaken):
			httpx.Error(w, http.StatusConflict, "email_taken", "email is already registered")
		case errors.Is(err, identity.ErrInvalidEmail):
			httpx.Error(w, http.StatusUnprocessableEntity, "invalid_email", "email address is invalid")
		case errors.Is(err, identity.ErrWeakPassword):
			httpx.Error(w, http.StatusUnprocessableEntity, "weak_password", err.Error())
		default:
			s.log.ErrorContext(r.Context(), "registration failed",
				logger.Error(err), logger.Component("account_http"))
			httpx.Error(w, http.StatusInternalServerError, "internal_error", "registration failed")
		}
		return
	}

	s.startSession(w, r, account, http.StatusCreated)
}

func (s *Service) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "bad_request", "malformed request body")
		return
	}

	account, err := s.accounts.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			httpx.Error(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
			return
		}
		s.log.ErrorContext(r.Context(), "login failed",
			logger.Error(err), logger.Component("account_http"))
		httpx.Error(w, http.StatusInternalServerError, "internal_error", "login failed")
		return
	}

	s.startSession(w, r, account, http.StatusOK)
}

func (s *Service) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     identity.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	httpx.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Service) startSession(w http.ResponseWriter, r *http.Request, account *identity.Account, status int) {
	token, err := s.tokens.Issue(account.ID)
	if err != nil {
		s.log.ErrorContext(r.Context(), "failed to issue session token",
			logger.AccountID(account.ID.String()), logger.Error(err), logger.Component("account_http"))
		httpx.Error(w, http.StatusInternalServerError, "internal_error", "failed to start session")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     identity.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.cookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	httpx.JSON(w, status, sessionResponse{
		AccountID: account.ID,
		Email:     account.Email,
		Name:      account.Name,
		Token:     token,
	})
}
