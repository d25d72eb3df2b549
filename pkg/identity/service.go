package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/leadhustle/platform/pkg/logger"
)

var emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const minPasswordLength = 8

// Service implements registration and password authentication on top of an
// AccountStore.
type Service struct {
	store      AccountStore
	bcryptCost int
	log        *slog.Logger

	afterRegister func(ctx context.Context, account *Account)
}

// ServiceOption configures the Service.
type ServiceOption func(*Service)

// WithBcryptCost overrides the password hashing cost.
func WithBcryptCost(cost int) ServiceOption {
	return func(s *Service) { s.bcryptCost = cost }
}

// WithAfterRegister registers a hook that runs asynchronously after a
// successful registration. Used for welcome emails; failures never affect
// the registration itself.
func WithAfterRegister(fn func(context.Context, *Account)) ServiceOption {
	return func(s *Service) { s.afterRegister = fn }
}

// NewService builds the identity service. Panics on a nil store, the
// process cannot run without account storage.
func NewService(store AccountStore, log *slog.Logger, opts ...ServiceOption) *Service {
	if store == nil {
		panic("identity: store is required")
	}
	if log == nil {
		log = slog.Default()
	}
	s := &Service{
		store:      store,
		bcryptCost: bcrypt.DefaultCost,
		log:        log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a new account with a hashed password.
func (s *Service) Register(ctx context.Context, email, name, password string) (*Account, error) {
	email = normalizeEmail(email)
	if !emailShape.MatchString(email) {
		return nil, ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: minimum %d characters", ErrWeakPassword, minPasswordLength)
	}

	if _, err := s.store.GetAccountByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrAccountNotFound) {
		return nil, fmt.Errorf("check existing account: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account := &Account{
		ID:        uuid.New(),
		Email:     email,
		Name:      strings.TrimSpace(name),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateAccount(ctx, account, hash); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	if s.afterRegister != nil {
		go func() {
			defer func() {
				if r := recover(); r != nil {
					s.log.Error("afterRegister hook panicked",
						logger.AccountID(account.ID.String()),
						slog.Any("panic", r),
						logger.Component("identity"),
					)
				}
			}()
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			s.afterRegister(ctx, account)
		}()
	}

	return account, nil
}

// Authenticate verifies email and password. Every failure maps to
// ErrInvalidCredentials so responses do not leak which accounts exist.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Account, error) {
	account, err := s.store.GetAccountByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	hash, err := s.store.GetPasswordHash(ctx, account.ID)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return account, nil
}

// GetAccount returns the email and display name for an account. Satisfies
// the billing checkout's account directory dependency.
func (s *Service) GetAccount(ctx context.Context, id uuid.UUID) (string, string, error) {
	account, err := s.store.GetAccount(ctx, id)
	if err != nil {
		return "", "", err
	}
	return account.Email, account.Name, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
