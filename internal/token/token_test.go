package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backoffice-service/internal/apierr"
)

var frozen = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func testService() *Service {
	return NewService(Config{
		CryptoSecret:      "test-secret",
		DataTTLDays:       3,
		JWTSigningKey:     "signing-key",
		SessionExpiryDays: 1,
	}).WithClock(func() time.Time { return frozen })
}

func TestDataTokenRoundTrip(t *testing.T) {
	svc := testService()

	opaque, err := svc.IssueDataToken(DataPayload{
		Email:  "ana@example.com",
		Custom: map[string]any{"plan": "basic"},
	}, 0)
	require.NoError(t, err)
	assert.NotContains(t, opaque, "ana@example.com")

	payload, err := svc.OpenDataToken(opaque)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", payload.Email)
	assert.Equal(t, "basic", payload.Custom["plan"])
	assert.True(t, payload.Expiration.Equal(frozen.AddDate(0, 0, 3)))
}

func TestDataTokenTTLOverride(t *testing.T) {
	svc := testService()

	opaque, err := svc.IssueDataToken(DataPayload{Email: "a@b.co"}, 7)
	require.NoError(t, err)
	payload, err := svc.OpenDataToken(opaque)
	require.NoError(t, err)
	assert.True(t, payload.Expiration.Equal(frozen.AddDate(0, 0, 7)))
}

func TestDataTokenDefaultTTL(t *testing.T) {
	svc := NewService(Config{CryptoSecret: "s"}).
		WithClock(func() time.Time { return frozen })

	opaque, err := svc.IssueDataToken(DataPayload{Email: "a@b.co"}, 0)
	require.NoError(t, err)
	payload, err := svc.OpenDataToken(opaque)
	require.NoError(t, err)
	assert.True(t, payload.Expiration.Equal(frozen.AddDate(0, 0, DefaultTTLDays)))
}

func TestCheckExpiration(t *testing.T) {
	svc := testService()

	opaque, err := svc.IssueDataToken(DataPayload{Email: "a@b.co"}, 3)
	require.NoError(t, err)
	payload, err := svc.OpenDataToken(opaque)
	require.NoError(t, err)

	assert.NoError(t, svc.CheckExpiration(payload))

	// on the boundary the token is still valid; expired means strictly
	// past the expiration
	svc.WithClock(func() time.Time { return frozen.AddDate(0, 0, 3) })
	assert.NoError(t, svc.CheckExpiration(payload))

	svc.WithClock(func() time.Time { return frozen.AddDate(0, 0, 4) })
	err = svc.CheckExpiration(payload)
	assert.True(t, apierr.IsKind(err, apierr.KindExpiredToken))
}

func TestOpenGarbageToken(t *testing.T) {
	svc := testService()

	for _, garbage := range []string{"", "not-a-token", "aGVsbG8", "!!!"} {
		_, err := svc.OpenDataToken(garbage)
		assert.True(t, apierr.IsKind(err, apierr.KindToken), garbage)
	}
}

func TestTokenBoundToSecret(t *testing.T) {
	svc := testService()
	other := NewService(Config{CryptoSecret: "different-secret"}).
		WithClock(func() time.Time { return frozen })

	opaque, err := svc.IssueDataToken(DataPayload{Email: "a@b.co"}, 0)
	require.NoError(t, err)

	_, err = other.OpenDataToken(opaque)
	assert.True(t, apierr.IsKind(err, apierr.KindToken))
}

func TestSessionTokenRoundTrip(t *testing.T) {
	svc := NewService(Config{JWTSigningKey: "signing-key", SessionExpiryDays: 1})

	tok, err := svc.IssueSessionToken("user-42")
	require.NoError(t, err)

	claims, err := svc.ParseSessionToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-42", claims.UserID)
}

func TestSessionTokenWrongKey(t *testing.T) {
	svc := NewService(Config{JWTSigningKey: "signing-key", SessionExpiryDays: 1})
	other := NewService(Config{JWTSigningKey: "other-key", SessionExpiryDays: 1})

	tok, err := svc.IssueSessionToken("user-42")
	require.NoError(t, err)

	_, err = other.ParseSessionToken(tok)
	assert.True(t, apierr.IsKind(err, apierr.KindToken))
}

func TestSessionTokenExpired(t *testing.T) {
	// issue with the clock ten days in the past so the one-day expiry is
	// long gone by real-clock verification time
	svc := NewService(Config{JWTSigningKey: "signing-key", SessionExpiryDays: 1}).
		WithClock(func() time.Time { return time.Now().AddDate(0, 0, -10) })

	tok, err := svc.IssueSessionToken("user-42")
	require.NoError(t, err)

	_, err = svc.ParseSessionToken(tok)
	assert.True(t, apierr.IsKind(err, apierr.KindExpiredToken))
}

func TestSessionTokenGarbage(t *testing.T) {
	svc := NewService(Config{JWTSigningKey: "signing-key"})

	_, err := svc.ParseSessionToken("not.a.jwt")
	assert.True(t, apierr.IsKind(err, apierr.KindToken))
}
