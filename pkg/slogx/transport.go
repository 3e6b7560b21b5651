package slogx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sannel/house/pkg/idx"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// Transport logs outgoing requests and stamps each one with an X-Request-ID
// unless the caller already set one.
func Transport(next http.RoundTripper, base *slog.Logger) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	if base == nil {
		base = slog.Default()
	}

	return roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		start := time.Now()

		reqID := r.Header.Get(RequestIDHeader)
		if reqID == "" {
			reqID = idx.New().String()
			r = r.Clone(r.Context())
			r.Header.Set(RequestIDHeader, reqID)
		}

		logger := base.With(
			"req_id", reqID,
			"method", r.Method,
			"host", r.URL.Host,
			"path", r.URL.Path,
		)

		resp, err := next.RoundTrip(r)
		duration := time.Since(start).Milliseconds()
		if err != nil {
			logger.WarnContext(r.Context(), "http_request_failed",
				"error", err,
				"duration_ms", duration,
			)
			return nil, err
		}

		logger.DebugContext(r.Context(), "http_request",
			"status", resp.StatusCode,
			"duration_ms", duration,
		)
		return resp, nil
	})
}
