package jwtx_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sannel/house/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

var secret = []byte("0123456789abcdef0123456789abcdef")

func TestSignAndParseUnverified(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	claims := jwtx.NewAccessClaims("user-1", "house-app", "test@test.com",
		[]string{"devices", "sensorlogging"}, time.Hour, "https://gateway.dev.local", now)

	token, err := jwtx.SignHS256(claims, secret)
	require.NoError(t, err)

	parsed, err := jwtx.ParseUnverified(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", parsed.Subject)
	require.Equal(t, "house-app", parsed.ClientID)
	require.Equal(t, "test@test.com", parsed.Username)
	require.True(t, parsed.HasScope("devices"))
	require.False(t, parsed.HasScope("admin"))
	require.True(t, parsed.ExpiresAt.Time.Equal(now.Add(time.Hour)))
}

func TestParseUnverifiedRejectsOpaqueTokens(t *testing.T) {
	_, err := jwtx.ParseUnverified("jwt access token")
	require.ErrorIs(t, err, jwtx.ErrMalformed)
}

func TestScopeAsSingleString(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "user-2",
		"scope": "devices",
	}).SignedString(secret)
	require.NoError(t, err)

	parsed, err := jwtx.ParseUnverified(token)
	require.NoError(t, err)
	require.True(t, parsed.HasScope("devices"))
}

func TestVerifyHS256(t *testing.T) {
	now := time.Now().UTC()

	t.Run("valid token", func(t *testing.T) {
		token, err := jwtx.SignHS256(jwtx.NewAccessClaims("u", "c", "n", nil, time.Minute, "iss", now), secret)
		require.NoError(t, err)

		claims, err := jwtx.VerifyHS256(token, secret, now)
		require.NoError(t, err)
		require.Equal(t, "u", claims.Subject)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := jwtx.SignHS256(jwtx.NewAccessClaims("u", "c", "n", nil, time.Minute, "iss", now), secret)
		require.NoError(t, err)

		_, err = jwtx.VerifyHS256(token, []byte("another-secret-another-secret-00"), now)
		require.ErrorIs(t, err, jwtx.ErrInvalidSig)
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := jwtx.SignHS256(jwtx.NewAccessClaims("u", "c", "n", nil, time.Minute, "iss", now.Add(-time.Hour)), secret)
		require.NoError(t, err)

		_, err = jwtx.VerifyHS256(token, secret, now)
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})
}

func TestValidateExpiryWithLeeway(t *testing.T) {
	now := time.Now().UTC()

	t.Run("valid with leeway", func(t *testing.T) {
		claims := &jwtx.Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(now.Add(-10 * time.Second)),
			},
		}
		require.NoError(t, claims.ValidateExpiryWithLeeway(now, 30*time.Second))
	})

	t.Run("expired beyond leeway", func(t *testing.T) {
		claims := &jwtx.Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(now.Add(-2 * time.Minute)),
			},
		}
		require.ErrorIs(t, claims.ValidateExpiryWithLeeway(now, 30*time.Second), jwtx.ErrExpired)
	})

	t.Run("not yet valid", func(t *testing.T) {
		claims := &jwtx.Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				NotBefore: jwt.NewNumericDate(now.Add(time.Minute)),
			},
		}
		require.ErrorIs(t, claims.ValidateExpiryWithLeeway(now, 0), jwtx.ErrNotYetValid)
	})
}
