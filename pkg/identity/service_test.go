package identity_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/leadhustle/platform/pkg/identity"
)

// memStore is an in-memory AccountStore for service tests.
type memStore struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*identity.Account
	byEmail  map[string]uuid.UUID
	hashes   map[uuid.UUID][]byte
}

func newMemStore() *memStore {
	return &memStore{
		accounts: make(map[uuid.UUID]*identity.Account),
		byEmail:  make(map[string]uuid.UUID),
		hashes:   make(map[uuid.UUID][]byte),
	}
}

func (s *memStore) CreateAccount(ctx context.Context, account *identity.Account, hash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[account.Email]; ok {
		return identity.ErrEmailTaken
	}
	cp := *account
	s.accounts[account.ID] = &cp
	s.byEmail[account.Email] = account.ID
	s.hashes[account.ID] = hash
	return nil
}

func (s *memStore) GetAccount(ctx context.Context, id uuid.UUID) (*identity.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return nil, identity.ErrAccountNotFound
	}
	cp := *account
	return &cp, nil
}

func (s *memStore) GetAccountByEmail(ctx context.Context, email string) (*identity.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[email]
	if !ok {
		return nil, identity.ErrAccountNotFound
	}
	cp := *s.accounts[id]
	return &cp, nil
}

func (s *memStore) GetPasswordHash(ctx context.Context, id uuid.UUID) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hash, ok := s.hashes[id]
	if !ok {
		return nil, identity.ErrAccountNotFound
	}
	return hash, nil
}

func newService(t *testing.T, store identity.AccountStore, opts ...identity.ServiceOption) *identity.Service {
	t.Helper()
	opts = append([]identity.ServiceOption{identity.WithBcryptCost(bcrypt.MinCost)}, opts...)
	return identity.NewService(store, nil, opts...)
}

func TestService_Register(t *testing.T) {
	t.Parallel()

	t.Run("creates an account with normalized email", func(t *testing.T) {
		t.Parallel()
		svc := newService(t, newMemStore())

		account, err := svc.Register(t.Context(), "  Jane@Example.COM ", " Jane Doe ", "password123")
		require.NoError(t, err)
		assert.Equal(t, "jane@example.com", account.Email)
		assert.Equal(t, "Jane Doe", account.Name)
		assert.NotEqual(t, uuid.Nil, account.ID)
	})

	t.Run("rejects duplicate email", func(t *testing.T) {
		t.Parallel()
		svc := newService(t, newMemStore())

		_, err := svc.Register(t.Context(), "jane@example.com", "Jane", "password123")
		require.NoError(t, err)
		_, err = svc.Register(t.Context(), "JANE@example.com", "Jane", "password123")
		assert.ErrorIs(t, err, identity.ErrEmailTaken)
	})

	t.Run("rejects malformed email", func(t *testing.T) {
		t.Parallel()
		svc := newService(t, newMemStore())
		_, err := svc.Register(t.Context(), "not-an-email", "Jane", "password123")
		assert.ErrorIs(t, err, identity.ErrInvalidEmail)
	})

	t.Run("rejects short password", func(t *testing.T) {
		t.Parallel()
		svc := newService(t, newMemStore())
		_, err := svc.Register(t.Context(), "jane@example.com", "Jane", "short")
		assert.ErrorIs(t, err, identity.ErrWeakPassword)
	})

	t.Run("runs the after-register hook", func(t *testing.T) {
		t.Parallel()
		hooked := make(chan uuid.UUID, 1)
		svc := newService(t, newMemStore(), identity.WithAfterRegister(func(_ context.Context, a *identity.Account) {
			hooked <- a.ID
		}))

		account, err := svc.Register(t.Context(), "jane@example.com", "Jane", "password123")
		require.NoError(t, err)

		select {
		case id := <-hooked:
			assert.Equal(t, account.ID, id)
		case <-time.After(2 * time.Second):
			t.Fatal("after-register hook did not run")
		}
	})
}

func TestService_Authenticate(t *testing.T) {
	t.Parallel()

	svc := newService(t, newMemStore())
	account, err := svc.Register(t.Context(), "jane@example.com", "Jane", "password123")
	require.NoError(t, err)

	t.Run("valid credentials", func(t *testing.T) {
		t.Parallel()
		got, err := svc.Authenticate(t.Context(), "Jane@Example.com", "password123")
		require.NoError(t, err)
		assert.Equal(t, account.ID, got.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		t.Parallel()
		_, err := svc.Authenticate(t.Context(), "jane@example.com", "wrong")
		assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
	})

	t.Run("unknown email maps to the same error", func(t *testing.T) {
		t.Parallel()
		_, err := svc.Authenticate(t.Context(), "nobody@example.com", "password123")
		assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
	})
}

func TestService_GetAccount(t *testing.T) {
	t.Parallel()

	svc := newService(t, newMemStore())
	account, err := svc.Register(t.Context(), "jane@example.com", "Jane", "password123")
	require.NoError(t, err)

	email, name, err := svc.GetAccount(t.Context(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", email)
	assert.Equal(t, "Jane", name)

	_, _, err = svc.GetAccount(t.Context(), uuid.New())
	assert.ErrorIs(t, err, identity.ErrAccountNotFound)
}
