// Package jwtx reads the claims carried by House access tokens.
//
// Clients never verify tokens, the gateway does; ParseUnverified is only for
// showing who a session belongs to and when the token says it expires.
// SignHS256 and VerifyHS256 exist for in-process fakes of the gateway.
package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrNotYetValid = errors.New("jwtx: token not yet valid")
)

// Claims are the access token claims issued by the House identity server.
type Claims struct {
	jwt.RegisteredClaims

	// ClientID is the OAuth client the token was issued to
	ClientID string `json:"client_id,omitempty"`

	// Scope may arrive either as a single string or as an array
	Scope jwt.ClaimStrings `json:"scope,omitempty"`

	// Username of the resource owner, absent for client tokens
	Username string `json:"preferred_username,omitempty"`

	// Authentication Methods Reference, e.g. ["pwd"]
	AMR []string `json:"amr,omitempty"`
}

// NewAccessClaims builds minimally-correct claims for a password grant.
func NewAccessClaims(
	subject, clientID, username string,
	scopes []string,
	ttl time.Duration,
	issuer string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		ClientID: clientID,
		Scope:    jwt.ClaimStrings(scopes),
		Username: username,
		AMR:      []string{"pwd"},
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// HasScope reports whether scope was granted.
func (c *Claims) HasScope(scope string) bool {
	for _, s := range c.Scope {
		if s == scope {
			return true
		}
	}
	return false
}

// ValidateExpiryWithLeeway ensures the token hasn't expired (exp) and isn't
// used before nbf, allowing leeway for clock skew.
func (c *Claims) ValidateExpiryWithLeeway(now time.Time, leeway time.Duration) error {
	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}

	return nil
}

// ParseUnverified decodes the claims of token without checking its
// signature.
func ParseUnverified(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return claims, nil
}

// SignHS256 signs claims with a shared secret.
func SignHS256(claims Claims, secret []byte) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign token: %w", err)
	}
	return signed, nil
}

// VerifyHS256 checks the signature and time based claims of token.
func VerifyHS256(token string, secret []byte, now time.Time) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, ErrInvalidSig
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if err := claims.ValidateExpiryWithLeeway(now, 0); err != nil {
		return nil, err
	}
	return claims, nil
}
