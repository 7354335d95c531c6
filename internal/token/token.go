// Package token issues and verifies the two token families the
// credential flows use: opaque symmetric data tokens for signup and
// password recovery, and HMAC-signed session tokens for bearer auth.
package token

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"backoffice-service/internal/apierr"
)

// DefaultTTLDays is the data token lifetime when the caller does not
// set one.
const DefaultTTLDays = 3

// Config carries the process-wide secrets and expiries. It is passed by
// constructor, never read from ambient state.
type Config struct {
	// CryptoSecret keys the symmetric cipher for data tokens.
	CryptoSecret string
	// DataTTLDays is the data token lifetime in days; zero means
	// DefaultTTLDays.
	DataTTLDays int
	// JWTSigningKey signs session tokens.
	JWTSigningKey string
	// SessionExpiryDays is the session token lifetime in days.
	SessionExpiryDays int
}

// DataPayload is the round-tripped content of a data token. Custom
// fields survive encryption untouched.
type DataPayload struct {
	Email      string         `json:"email"`
	Expiration time.Time      `json:"expiration"`
	Custom     map[string]any `json:"custom,omitempty"`
}

// SessionClaims are the signed claims of a session token.
type SessionClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Service issues and opens tokens. Stateless apart from the injected
// wall clock.
type Service struct {
	cfg Config
	key []byte
	now func() time.Time
}

func NewService(cfg Config) *Service {
	// derive a fixed-size AES key from the configured secret
	key := sha256.Sum256([]byte(cfg.CryptoSecret))
	return &Service{cfg: cfg, key: key[:], now: time.Now}
}

// WithClock overrides the wall clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// IssueDataToken seals the payload with the expiration pushed ttlDays
// into the future. Non-positive ttlDays falls back to the configured
// default.
func (s *Service) IssueDataToken(payload DataPayload, ttlDays int) (string, error) {
	if ttlDays < 1 {
		ttlDays = s.cfg.DataTTLDays
	}
	if ttlDays < 1 {
		ttlDays = DefaultTTLDays
	}
	payload.Expiration = s.now().UTC().AddDate(0, 0, ttlDays)

	plain, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding token payload: %w", err)
	}
	return s.encrypt(plain)
}

// OpenDataToken decrypts and decodes an opaque token. Garbage input
// surfaces as a recoverable token error, never a crash.
func (s *Service) OpenDataToken(opaque string) (DataPayload, error) {
	var payload DataPayload

	plain, err := s.decrypt(opaque)
	if err != nil {
		return payload, apierr.Token("invalid token", err)
	}
	if err := json.Unmarshal(plain, &payload); err != nil {
		return payload, apierr.Token("invalid token payload", err)
	}
	return payload, nil
}

// CheckExpiration reports whether the payload is still valid. Expired
// means the expiration is strictly before now.
func (s *Service) CheckExpiration(payload DataPayload) error {
	if payload.Expiration.Before(s.now()) {
		return apierr.ExpiredToken("the token expired")
	}
	return nil
}

// IssueSessionToken signs a bearer token carrying the user id.
// Verification on later requests belongs to the auth middleware.
func (s *Service) IssueSessionToken(userID string) (string, error) {
	days := s.cfg.SessionExpiryDays
	if days < 1 {
		days = 1
	}
	claims := SessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(s.now().AddDate(0, 0, days)),
			IssuedAt:  jwt.NewNumericDate(s.now()),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString([]byte(s.cfg.JWTSigningKey))
}

// ParseSessionToken validates a bearer token and returns its claims.
func (s *Service) ParseSessionToken(tokenString string) (*SessionClaims, error) {
	tok, err := jwt.ParseWithClaims(
		tokenString,
		&SessionClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(s.cfg.JWTSigningKey), nil
		},
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apierr.ExpiredToken("the session expired")
		}
		return nil, apierr.Token("invalid session token", err)
	}
	claims, ok := tok.Claims.(*SessionClaims)
	if !ok || !tok.Valid {
		return nil, apierr.Token("invalid session token", nil)
	}
	return claims, nil
}

// encrypt seals plain with AES-GCM and encodes the result for URL
// transport.
func (s *Service) encrypt(plain []byte) (string, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := gcm.Seal(nonce, nonce, plain, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (s *Service) decrypt(opaque string) ([]byte, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(opaque)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(sealed) < gcm.NonceSize() {
		return nil, errors.New("token too short")
	}
	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ciphertext, nil)
}
