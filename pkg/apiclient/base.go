package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// Base is the shared core of every House client: a named connection source,
// a base address and the current bearer token.
type Base struct {
	name    string
	conn    Connection
	baseURL string
	logger  *slog.Logger

	mu    sync.RWMutex
	token string
}

// NewBase creates a Base for the client called name. The name selects the
// connection when conn comes from a Factory.
func NewBase(name string, conn Connection, baseAddress string, logger *slog.Logger) (*Base, error) {
	if err := conn.validate(); err != nil {
		return nil, err
	}

	u, err := ParseBaseAddress(baseAddress)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Base{
		name:    name,
		conn:    conn,
		baseURL: strings.TrimSuffix(u.String(), "/"),
		logger:  logger.With("client", name),
	}, nil
}

// ParseBaseAddress parses an absolute http(s) base address.
func ParseBaseAddress(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("base address is empty")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base address: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base address %q must use http or https", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("base address %q has no host", raw)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return nil, fmt.Errorf("base address %q must not carry a query or fragment", raw)
	}

	return u, nil
}

// Name returns the logical client name used to resolve connections.
func (b *Base) Name() string { return b.name }

// BaseAddress returns the base address without a trailing slash.
func (b *Base) BaseAddress() string { return b.baseURL }

// AuthToken returns the current bearer token, empty when unauthenticated.
func (b *Base) AuthToken() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.token
}

// SetAuthToken replaces the bearer token sent with every later request.
func (b *Base) SetAuthToken(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.token = token
}

// url builds a complete URL by appending the path to the base address.
func (b *Base) url(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return b.baseURL + path
}

// PostJSON sends body as JSON to path and fills out from the response.
func (b *Base) PostJSON(ctx context.Context, path string, body any, out Envelope) error {
	return b.do(ctx, http.MethodPost, path, body, out)
}

// GetJSON fetches path and fills out from the response.
func (b *Base) GetJSON(ctx context.Context, path string, out Envelope) error {
	return b.do(ctx, http.MethodGet, path, nil, out)
}

// Post is the typed form of PostJSON:
//
//	res, err := apiclient.Post[apiclient.Result[Device]](ctx, base, "/api/v1/Devices", dev)
func Post[R any, PR interface {
	*R
	Envelope
}](ctx context.Context, b *Base, path string, body any) (*R, error) {
	out := new(R)
	if err := b.PostJSON(ctx, path, body, PR(out)); err != nil {
		return nil, err
	}
	return out, nil
}

// Get is the typed form of GetJSON.
func Get[R any, PR interface {
	*R
	Envelope
}](ctx context.Context, b *Base, path string) (*R, error) {
	out := new(R)
	if err := b.GetJSON(ctx, path, PR(out)); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *Base) do(ctx context.Context, method, path string, body any, out Envelope) error {
	target := b.url(path)

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := b.AuthToken(); token != "" {
		(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(req)
	}

	client, err := b.conn.resolve(b.name)
	if err != nil {
		return &TransportError{Op: "connect", Method: method, URL: target, Err: err}
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return &TransportError{Op: "send", Method: method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	b.logger.DebugContext(ctx, "api call",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return decodeEnvelope(resp, out, method, target)
}
