package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// tokenHeader is the fixed JWS header. Only HS256 is accepted on
// verification, which closes the algorithm confusion class of attacks.
type tokenHeader struct {
	Type      string `json:"typ"`
	Algorithm string `json:"alg"`
}

// sessionClaims is the token payload.
type sessionClaims struct {
	TokenID   string `json:"jti"`
	Subject   string `json:"sub"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// TokenConfig is the environment-driven session token setup.
type TokenConfig struct {
	SigningKey string        `env:"SESSION_SIGNING_KEY,required"`
	TTL        time.Duration `env:"SESSION_TTL" envDefault:"720h"`
}

// TokenService issues and verifies HMAC-SHA256 signed session tokens.
type TokenService struct {
	signingKey []byte
	ttl        time.Duration
}

// NewTokenService builds the token service from config.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if cfg.SigningKey == "" {
		return nil, ErrMissingSigningKey
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &TokenService{signingKey: []byte(cfg.SigningKey), ttl: ttl}, nil
}

// Issue creates a session token for the account.
func (s *TokenService) Issue(accountID uuid.UUID) (string, error) {
	now := time.Now()
	return s.sign(sessionClaims{
		TokenID:   uuid.NewString(),
		Subject:   accountID.String(),
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(s.ttl).Unix(),
	})
}

// Verify checks the signature and expiry and returns the account ID.
func (s *TokenService) Verify(token string) (uuid.UUID, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return uuid.Nil, ErrInvalidToken
	}

	payload := parts[0] + "." + parts[1]
	expected := s.signature(payload)
	if subtle.ConstantTimeCompare([]byte(parts[2]), []byte(expected)) != 1 {
		return uuid.Nil, ErrInvalidToken
	}

	rawHeader, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return uuid.Nil, errors.Join(ErrInvalidToken, err)
	}
	var header tokenHeader
	if err := json.Unmarshal(rawHeader, &header); err != nil {
		return uuid.Nil, errors.Join(ErrInvalidToken, err)
	}
	if header.Algorithm != "HS256" {
		return uuid.Nil, ErrInvalidToken
	}

	rawClaims, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return uuid.Nil, errors.Join(ErrInvalidToken, err)
	}
	var claims sessionClaims
	if err := json.Unmarshal(rawClaims, &claims); err != nil {
		return uuid.Nil, errors.Join(ErrInvalidToken, err)
	}
	if claims.ExpiresAt > 0 && time.Now().Unix() > claims.ExpiresAt {
		return uuid.Nil, ErrExpiredToken
	}

	accountID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, errors.Join(ErrInvalidToken, err)
	}
	return accountID, nil
}

func (s *TokenService) sign(claims sessionClaims) (string, error) {
	rawHeader, err := json.Marshal(tokenHeader{Type: "JWT", Algorithm: "HS256"})
	if err != nil {
		return "", fmt.Errorf("marshal header: %w", err)
	}
	rawClaims, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("marshal claims: %w", err)
	}

	payload := base64.RawURLEncoding.EncodeToString(rawHeader) + "." +
		base64.RawURLEncoding.EncodeToString(rawClaims)
	return payload + "." + s.signature(payload), nil
}

func (s *TokenService) signature(payload string) string {
	mac := hmac.New(sha256.New, s.signingKey)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
