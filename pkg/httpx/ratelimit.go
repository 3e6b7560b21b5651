package httpx

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig defines the rate limiting parameters.
type RateLimitConfig struct {
	// RequestsPerWindow is the number of requests allowed in the time window
	RequestsPerWindow int
	// Window is the time window for rate limiting
	Window time.Duration
	// Burst allows for temporary bursts above the rate limit
	Burst int
}

// DefaultLimit keeps a single client well below what the gateway tolerates.
// Allows 120 requests per minute, with 20 available as a burst.
var DefaultLimit = RateLimitConfig{
	RequestsPerWindow: 120,
	Window:            time.Minute,
	Burst:             20,
}

// ParseRateLimitFromEnv reads rate limit configuration from environment variables.
// Environment variables follow the pattern: {prefix}_RATE_LIMIT_{field}
// For example: HOUSE_RATE_LIMIT_REQUESTS, HOUSE_RATE_LIMIT_WINDOW_SEC, HOUSE_RATE_LIMIT_BURST
func ParseRateLimitFromEnv(prefix string, defaultConfig RateLimitConfig) RateLimitConfig {
	config := defaultConfig

	if val := os.Getenv(prefix + "_RATE_LIMIT_REQUESTS"); val != "" {
		if requests, err := strconv.Atoi(val); err == nil && requests > 0 {
			config.RequestsPerWindow = requests
		}
	}

	if val := os.Getenv(prefix + "_RATE_LIMIT_WINDOW_SEC"); val != "" {
		if windowSec, err := strconv.Atoi(val); err == nil && windowSec > 0 {
			config.Window = time.Duration(windowSec) * time.Second
		}
	}

	if val := os.Getenv(prefix + "_RATE_LIMIT_BURST"); val != "" {
		if burst, err := strconv.Atoi(val); err == nil && burst > 0 {
			config.Burst = burst
		}
	}

	return config
}

// Limit converts the window based config to a token bucket rate. A config
// without requests or window does not limit at all.
func (c RateLimitConfig) Limit() rate.Limit {
	if c.RequestsPerWindow <= 0 || c.Window <= 0 {
		return rate.Inf
	}
	return rate.Limit(float64(c.RequestsPerWindow) / c.Window.Seconds())
}

// KeyExtractor groups outgoing requests for rate limiting purposes.
type KeyExtractor func(*http.Request) string

// HostKeyExtractor groups requests by target host.
func HostKeyExtractor(r *http.Request) string {
	return r.URL.Host
}

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

// RoundTrip implements http.RoundTripper.
func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// rateLimiter manages rate limiters for different keys
type rateLimiter struct {
	limiters sync.Map // map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// getLimiter retrieves or creates a rate limiter for the given key
func (rl *rateLimiter) getLimiter(key string) *rate.Limiter {
	// Fast path: limiter already exists
	if limiter, ok := rl.limiters.Load(key); ok {
		return limiter.(*rate.Limiter)
	}

	limiter := rate.NewLimiter(rl.rate, rl.burst)
	actual, _ := rl.limiters.LoadOrStore(key, limiter)
	return actual.(*rate.Limiter)
}

// RateLimit wraps next so outgoing requests wait for a token before being
// sent. Waiting honours the request context; a cancelled wait fails the
// request without sending it.
func RateLimit(next http.RoundTripper, config RateLimitConfig, keyExtractor KeyExtractor) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	if keyExtractor == nil {
		keyExtractor = HostKeyExtractor
	}

	burst := config.Burst
	if burst <= 0 {
		burst = 1
	}

	rl := &rateLimiter{
		rate:  config.Limit(),
		burst: burst,
	}

	return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		limiter := rl.getLimiter(keyExtractor(r))
		if err := limiter.Wait(r.Context()); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
		return next.RoundTrip(r)
	})
}
