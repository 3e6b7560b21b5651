package houseclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sannel/house/pkg/apiclient"
	"github.com/sannel/house/pkg/slogx"
)

const (
	// TokenPath is the identity server's token endpoint.
	TokenPath = "/connect/token"

	// GrantTypePassword is the resource owner password credentials grant.
	GrantTypePassword = "password"
)

// ErrMissingAccessToken is wrapped by the TransportError returned when the
// token endpoint answers 2xx without an access token.
var ErrMissingAccessToken = errors.New("token response has no access_token")

// TokenRequest is the JSON body sent to TokenPath.
type TokenRequest struct {
	GrantType    string `json:"grant_type"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// Login exchanges username and password for an access token.
//
// A rejected login is not an error: the result comes back with Success false
// and Error/ErrorDescription set, and the session is left untouched. On
// success the token is applied to the session and every sub-client, and
// ExpiresAt is updated, before Login returns. The returned error is always a
// transport failure wrapping *apiclient.TransportError.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	log := slogx.FromContext(ctx, c.logger)

	req := TokenRequest{
		GrantType:    GrantTypePassword,
		Username:     username,
		Password:     password,
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
	}

	result, err := apiclient.Post[LoginResult](ctx, c.base, TokenPath, req)
	if err != nil {
		log.ErrorContext(ctx, "login failed", "error", err)
		return nil, fmt.Errorf("login: %w", err)
	}

	if !result.Success {
		log.WarnContext(ctx, "login rejected",
			"status", result.StatusCode,
			"error", result.Error,
			"error_description", result.ErrorDescription,
		)
		return result, nil
	}

	if result.AccessToken == "" {
		err := &apiclient.TransportError{
			Op:         "decode",
			Method:     http.MethodPost,
			URL:        c.base.BaseAddress() + TokenPath,
			StatusCode: result.StatusCode,
			Err:        ErrMissingAccessToken,
		}
		log.ErrorContext(ctx, "login failed", "error", err)
		return nil, fmt.Errorf("login: %w", err)
	}

	c.mu.Lock()
	c.setAuthTokenLocked(result.AccessToken)
	c.expiresAt = result.ExpiresAt
	c.mu.Unlock()

	log.InfoContext(ctx, "login succeeded",
		"token_type", result.TokenType,
		"expires_at", result.ExpiresAt,
	)
	return result, nil
}
