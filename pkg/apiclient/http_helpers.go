package apiclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// MaxResponseBytes caps how much of a response body is read.
const MaxResponseBytes = 4 << 20

var (
	errNotJSON      = errors.New("response body is not JSON")
	errEmptyBody    = errors.New("response body is empty")
	errBodyTooLarge = fmt.Errorf("response body exceeds %d bytes", MaxResponseBytes)
)

// decodeEnvelope reads resp and fills out. A 2xx response must carry a JSON
// body and settles as success. Any other status still decodes into out so
// typed error fields are recovered, then settles as failure.
func decodeEnvelope(resp *http.Response, out Envelope, method, target string) error {
	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes+1))
	if err == nil && len(bodyBytes) > MaxResponseBytes {
		err = errBodyTooLarge
	}
	if err != nil {
		return &TransportError{
			Op:         "read",
			Method:     method,
			URL:        target,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("failed to read response body: %w", err),
		}
	}
	body := bytes.TrimSpace(bodyBytes)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if len(body) == 0 {
			return &TransportError{
				Op:         "decode",
				Method:     method,
				URL:        target,
				StatusCode: resp.StatusCode,
				Err:        errEmptyBody,
			}
		}
		if err := json.Unmarshal(body, out.Target()); err != nil {
			return &TransportError{
				Op:         "decode",
				Method:     method,
				URL:        target,
				StatusCode: resp.StatusCode,
				Err:        fmt.Errorf("failed to decode response: %w", err),
			}
		}
		out.Settle(resp.StatusCode, nil)
		return nil
	}

	if len(body) > 0 {
		if !json.Valid(body) {
			return &TransportError{
				Op:         "decode",
				Method:     method,
				URL:        target,
				StatusCode: resp.StatusCode,
				Err:        errNotJSON,
			}
		}
		// The error body need not match the payload shape; keep whatever fits.
		_ = json.Unmarshal(body, out.Target())
	}

	out.Settle(resp.StatusCode, parseErrorResponse(resp.StatusCode, body))
	return nil
}

// parseErrorResponse extracts the error fields from a non-2xx body, falling
// back to a generic server_error built from the status code.
func parseErrorResponse(status int, body []byte) *ErrorResponse {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &errResp
	}

	var valErr ValidationErrorResponse
	if err := json.Unmarshal(body, &valErr); err == nil && valErr.Code != "" {
		return &ErrorResponse{
			Error:            valErr.Code,
			ErrorDescription: valErr.Message,
		}
	}

	return &ErrorResponse{
		Error:            ErrorCodeServerError,
		ErrorDescription: fmt.Sprintf("HTTP %d: %s", status, http.StatusText(status)),
	}
}
