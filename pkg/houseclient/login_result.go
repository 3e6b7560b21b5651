package houseclient

import (
	"encoding/json"
	"time"

	"github.com/sannel/house/pkg/apiclient"
	"github.com/sannel/house/pkg/jwtx"
	"golang.org/x/oauth2"
)

// LoginResult is the token endpoint response. On success the embedded
// Result's Data holds the access token.
type LoginResult struct {
	apiclient.Result[string]

	// AccessToken is the bearer token for the session
	AccessToken string `json:"access_token"`

	// TokenType is "Bearer" for the House identity server
	TokenType string `json:"token_type"`

	// ExpiresIn is the token lifetime in seconds as sent by the server
	ExpiresIn int64 `json:"expires_in"`

	// ExpiresAt is derived from ExpiresIn when the response is decoded and
	// is not recomputed afterwards.
	ExpiresAt time.Time `json:"-"`

	// Error and ErrorDescription carry the OAuth2 error of a rejected login
	Error            string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// SetExpiresIn records the lifetime and derives ExpiresAt from now.
func (r *LoginResult) SetExpiresIn(seconds int64, now time.Time) {
	r.ExpiresIn = seconds
	r.ExpiresAt = now.Add(time.Duration(seconds) * time.Second)
}

// UnmarshalJSON decodes the token response, capturing ExpiresAt at the
// moment expires_in is read.
func (r *LoginResult) UnmarshalJSON(data []byte) error {
	type wire LoginResult
	aux := struct {
		*wire
		ExpiresIn *int64 `json:"expires_in"`
	}{wire: (*wire)(r)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.ExpiresIn != nil {
		r.SetExpiresIn(*aux.ExpiresIn, time.Now())
	}
	return nil
}

// Target implements apiclient.Envelope.
func (r *LoginResult) Target() any { return r }

// Settle implements apiclient.Envelope.
func (r *LoginResult) Settle(status int, apiErr *apiclient.ErrorResponse) {
	r.Result.Settle(status, apiErr)
	if r.Success {
		r.Data = r.AccessToken
	}
}

// Token converts a successful result to an oauth2.Token, nil otherwise.
func (r *LoginResult) Token() *oauth2.Token {
	if !r.Success {
		return nil
	}
	return &oauth2.Token{
		AccessToken: r.AccessToken,
		TokenType:   r.TokenType,
		Expiry:      r.ExpiresAt,
	}
}

// Claims decodes the access token's claims without verifying it.
func (r *LoginResult) Claims() (*jwtx.Claims, error) {
	return jwtx.ParseUnverified(r.AccessToken)
}
