package apiclient

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/sannel/house/pkg/httpx"
	"github.com/sannel/house/pkg/slogx"
)

// PoolConfig configures the clients built by a Pool.
type PoolConfig struct {
	// Timeout bounds each request end to end (default: 30s)
	Timeout time.Duration

	// RateLimit throttles outgoing requests per client name and host; nil
	// disables throttling.
	RateLimit *httpx.RateLimitConfig

	// Transport is the innermost round tripper (default: http.DefaultTransport)
	Transport http.RoundTripper

	Logger *slog.Logger
}

// Pool is a Factory that builds one *http.Client per name on first use and
// hands the same client out afterwards.
type Pool struct {
	cfg PoolConfig

	mu      sync.Mutex
	clients map[string]*http.Client
}

// NewPool creates an empty pool.
func NewPool(cfg PoolConfig) *Pool {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Transport == nil {
		cfg.Transport = http.DefaultTransport
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Pool{
		cfg:     cfg,
		clients: make(map[string]*http.Client),
	}
}

// Client implements Factory.
func (p *Pool) Client(name string) *http.Client {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[name]; ok {
		return c
	}

	rt := p.cfg.Transport
	if p.cfg.RateLimit != nil {
		rt = httpx.RateLimit(rt, *p.cfg.RateLimit, httpx.HostKeyExtractor)
	}
	rt = slogx.Transport(rt, p.cfg.Logger.With("client", name))

	c := &http.Client{
		Timeout:   p.cfg.Timeout,
		Transport: rt,
	}
	p.clients[name] = c
	return c
}

// Names lists the clients built so far.
func (p *Pool) Names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	names := make([]string, 0, len(p.clients))
	for name := range p.clients {
		names = append(names, name)
	}
	return names
}

// CloseIdleConnections closes idle connections of the shared transport.
// The middleware wrapping it hides the method from http.Client, so the pool
// reaches the innermost transport directly.
func (p *Pool) CloseIdleConnections() {
	type closeIdler interface{ CloseIdleConnections() }
	if c, ok := p.cfg.Transport.(closeIdler); ok {
		c.CloseIdleConnections()
	}
}
