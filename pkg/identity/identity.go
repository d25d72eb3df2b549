// Package identity owns accounts, password authentication and the signed
// session tokens the HTTP layer uses to recognize an account.
package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAccountNotFound    = errors.New("identity: account not found")
	ErrEmailTaken         = errors.New("identity: email already registered")
	ErrInvalidCredentials = errors.New("identity: invalid email or password")
	ErrInvalidEmail       = errors.New("identity: invalid email address")
	ErrWeakPassword       = errors.New("identity: password does not meet requirements")
	ErrInvalidToken       = errors.New("identity: invalid session token")
	ErrExpiredToken       = errors.New("identity: session token expired")
	ErrMissingSigningKey  = errors.New("identity: signing key is required")
)

// Account is a registered user of the platform.
type Account struct {
	ID        uuid.UUID
	Email     string
	Name      string
	CreatedAt time.Time
}

// AccountStore persists accounts and their password hashes.
type AccountStore interface {
	CreateAccount(ctx context.Context, account *Account, passwordHash []byte) error
	GetAccount(ctx context.Context, id uuid.UUID) (*Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*Account, error)
	GetPasswordHash(ctx context.Context, id uuid.UUID) ([]byte, error)
}
