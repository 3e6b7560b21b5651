package apiclient

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// OAuth2 error codes (RFC 6749) as returned by the House gateway.
const (
	ErrorCodeInvalidRequest       = "invalid_request"
	ErrorCodeInvalidClient        = "invalid_client"
	ErrorCodeInvalidGrant         = "invalid_grant"
	ErrorCodeUnauthorizedClient   = "unauthorized_client"
	ErrorCodeUnsupportedGrantType = "unsupported_grant_type"
	ErrorCodeInvalidScope         = "invalid_scope"
	ErrorCodeInvalidToken         = "invalid_token"
	ErrorCodeNotFound             = "not_found"
	ErrorCodeServerError          = "server_error"
)

// ============================================================================
// OAuth2Error - a rejected call
// ============================================================================

// OAuth2Error describes a call the gateway answered with a non-2xx status.
// Clients never return it from their request methods; it is built on demand
// by Result.Err so callers that prefer error values can have one.
type OAuth2Error struct {
	// StatusCode is the HTTP status code of the response
	StatusCode int `json:"-"`

	// Code is the OAuth2 error code (e.g., "invalid_grant")
	Code string `json:"error"`

	// Description is a human-readable description of the error
	Description string `json:"error_description"`
}

// Error implements the error interface.
func (e *OAuth2Error) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// WriteError writes e as an OAuth2 error response. Used by fakes and tests
// that stand in for the gateway.
func (e *OAuth2Error) WriteError(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(e)
}

// NewOAuth2Error creates a new OAuth2Error.
func NewOAuth2Error(statusCode int, code, description string) *OAuth2Error {
	return &OAuth2Error{
		StatusCode:  statusCode,
		Code:        code,
		Description: description,
	}
}

// ============================================================================
// TransportError - the call itself failed
// ============================================================================

// TransportError reports a failure to complete an HTTP exchange: the request
// could not be sent, the context ended, or the response body could not be
// read or was not JSON. It is fatal for the call that produced it.
type TransportError struct {
	// Op is the stage that failed: "connect", "send", "read" or "decode"
	Op string

	Method string
	URL    string

	// StatusCode is set when a response was received before the failure
	StatusCode int

	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: %s (status %d): %v", e.Method, e.URL, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %s: %v", e.Method, e.URL, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error { return e.Err }
