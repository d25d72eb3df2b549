package identity_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadhustle/platform/pkg/identity"
)

func newTokens(t *testing.T, ttl time.Duration) *identity.TokenService {
	t.Helper()
	tokens, err := identity.NewTokenService(identity.TokenConfig{
		SigningKey: "test-signing-key-at-least-32-bytes!",
		TTL:        ttl,
	})
	require.NoError(t, err)
	return tokens
}

func TestTokenService(t *testing.T) {
	t.Parallel()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()
		tokens := newTokens(t, time.Hour)
		accountID := uuid.New()

		token, err := tokens.Issue(accountID)
		require.NoError(t, err)

		got, err := tokens.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, accountID, got)
	})

	t.Run("expired token", func(t *testing.T) {
		t.Parallel()
		tokens := newTokens(t, -time.Minute)
		token, err := tokens.Issue(uuid.New())
		require.NoError(t, err)

		_, err = tokens.Verify(token)
		assert.ErrorIs(t, err, identity.ErrExpiredToken)
	})

	t.Run("tampered payload", func(t *testing.T) {
		t.Parallel()
		tokens := newTokens(t, time.Hour)
		token, err := tokens.Issue(uuid.New())
		require.NoError(t, err)

		parts := strings.Split(token, ".")
		parts[1] = parts[1][:len(parts[1])-2] + "xx"
		_, err = tokens.Verify(strings.Join(parts, "."))
		assert.ErrorIs(t, err, identity.ErrInvalidToken)
	})

	t.Run("wrong key", func(t *testing.T) {
		t.Parallel()
		tokens := newTokens(t, time.Hour)
		other, err := identity.NewTokenService(identity.TokenConfig{SigningKey: "another-key-entirely-also-32-bytes", TTL: time.Hour})
		require.NoError(t, err)

		token, err := other.Issue(uuid.New())
		require.NoError(t, err)
		_, err = tokens.Verify(token)
		assert.ErrorIs(t, err, identity.ErrInvalidToken)
	})

	t.Run("missing signing key", func(t *testing.T) {
		t.Parallel()
		_, err := identity.NewTokenService(identity.TokenConfig{})
		assert.ErrorIs(t, err, identity.ErrMissingSigningKey)
	})
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	tokens := newTokens(t, time.Hour)
	accountID := uuid.New()

	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity.AccountIDFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		_, _ = w.Write([]byte(id.String()))
	})

	t.Run("bearer token", func(t *testing.T) {
		t.Parallel()
		token, err := tokens.Issue(accountID)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		identity.Middleware(tokens)(echo).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, accountID.String(), rec.Body.String())
	})

	t.Run("session cookie", func(t *testing.T) {
		t.Parallel()
		token, err := tokens.Issue(accountID)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: identity.SessionCookieName, Value: token})
		rec := httptest.NewRecorder()
		identity.Middleware(tokens)(echo).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		identity.Middleware(tokens)(echo).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("optional middleware passes anonymous requests", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		identity.OptionalMiddleware(tokens)(echo).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusTeapot, rec.Code)
	})
}
