package houseclient

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sannel/house/pkg/apiclient"
	"github.com/sannel/house/pkg/devices"
	"github.com/sannel/house/pkg/sensorlogging"
	"golang.org/x/oauth2"
)

// ClientName selects the session's own connection from a Factory.
const ClientName = "HouseClient"

// tokenHolder is what the session needs from a sub-client.
type tokenHolder interface {
	AuthToken() string
	SetAuthToken(token string)
}

// Client is one authenticated House session. It owns the devices and sensor
// logging clients and keeps their tokens identical to its own.
type Client struct {
	base   *apiclient.Base
	cfg    Config
	logger *slog.Logger

	devices       *devices.Client
	sensorLogging *sensorlogging.Client

	// mu serialises token changes so the session and every sub-client move
	// to a new token together.
	mu        sync.Mutex
	expiresAt time.Time
}

// New builds a session over conn. Every sub-client shares the same
// connection source: a direct connection is shared as is, a factory is asked
// for "HouseClient", "DevicesClient" and "SensorLoggingClient".
func New(conn apiclient.Connection, cfg Config, logger *slog.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	base, err := apiclient.NewBase(ClientName, conn, cfg.BaseAddress, logger)
	if err != nil {
		return nil, fmt.Errorf("house client: %w", err)
	}

	dev, err := devices.New(conn, cfg.BaseAddress, logger)
	if err != nil {
		return nil, err
	}

	sl, err := sensorlogging.New(conn, cfg.BaseAddress, logger)
	if err != nil {
		return nil, err
	}

	return &Client{
		base:          base,
		cfg:           cfg,
		logger:        logger.With("client", ClientName),
		devices:       dev,
		sensorLogging: sl,
	}, nil
}

// Devices returns the devices client bound to this session.
func (c *Client) Devices() *devices.Client { return c.devices }

// SensorLogging returns the sensor logging client bound to this session.
func (c *Client) SensorLogging() *sensorlogging.Client { return c.sensorLogging }

// AuthToken returns the current bearer token, empty before the first login.
func (c *Client) AuthToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.base.AuthToken()
}

// SetAuthToken sets token on the session and on every sub-client before it
// returns.
func (c *Client) SetAuthToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setAuthTokenLocked(token)
}

// setAuthTokenLocked performs the cascade; c.mu must be held.
func (c *Client) setAuthTokenLocked(token string) {
	c.base.SetAuthToken(token)
	for _, sub := range c.subClients() {
		sub.SetAuthToken(token)
	}
}

func (c *Client) subClients() []tokenHolder {
	return []tokenHolder{c.devices, c.sensorLogging}
}

// ExpiresAt returns the expiry of the last successful login, or the zero
// time if there has been none.
func (c *Client) ExpiresAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expiresAt
}

// IsAuthenticated reports whether the session holds a token that has not
// expired at now.
func (c *Client) IsAuthenticated(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.base.AuthToken() != "" && now.Before(c.expiresAt)
}

// Logout clears the token everywhere and resets the expiry.
func (c *Client) Logout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setAuthTokenLocked("")
	c.expiresAt = time.Time{}
}

// TokenSource returns a source yielding a snapshot of the current token, for
// code that authenticates its own requests with golang.org/x/oauth2.
func (c *Client) TokenSource() oauth2.TokenSource {
	c.mu.Lock()
	defer c.mu.Unlock()
	return oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: c.base.AuthToken(),
		TokenType:   "Bearer",
		Expiry:      c.expiresAt,
	})
}
