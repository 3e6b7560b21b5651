// Package app wires configuration, logging and the House clients together
// for housectl.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/sannel/house/internal/config"
	"github.com/sannel/house/pkg/apiclient"
	"github.com/sannel/house/pkg/houseclient"
	"github.com/sannel/house/pkg/sensorlogging"
	"github.com/sannel/house/pkg/slogx"
)

// BuildVersion is overridden at build time via ldflags.
var BuildVersion = "v0.1.0"

// ErrRejected is returned when the gateway answers with an error body.
var ErrRejected = errors.New("request rejected")

// Credentials identify the resource owner for a password grant.
type Credentials struct {
	Username string
	Password string
}

// Option customises an Application.
type Option func(*Application)

// WithOutput redirects command output, stdout by default.
func WithOutput(w io.Writer) Option {
	return func(a *Application) { a.out = w }
}

// WithLogger replaces the logger built from configuration.
func WithLogger(l *slog.Logger) Option {
	return func(a *Application) { a.logger = l }
}

// WithTransport sets the round tripper under the pooled clients.
func WithTransport(rt http.RoundTripper) Option {
	return func(a *Application) { a.transport = rt }
}

// Application holds one House session and the pool backing it.
type Application struct {
	cfg       *config.Config
	logger    *slog.Logger
	out       io.Writer
	transport http.RoundTripper

	pool  *apiclient.Pool
	house *houseclient.Client
}

// New validates cfg and builds the session.
func New(cfg *config.Config, opts ...Option) (*Application, error) {
	app := &Application{cfg: cfg, out: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}

	if app.logger == nil {
		app.logger = slogx.New(slogx.Config{
			Service: "housectl",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.Logging.Level,
			Format:  cfg.Logging.Format,
		})
	}

	poolCfg := apiclient.PoolConfig{
		Timeout:   cfg.Transport.Timeout,
		Transport: app.transport,
		Logger:    app.logger,
	}
	if cfg.Transport.RateLimit.Enabled {
		rl := cfg.Transport.RateLimit.HTTPX()
		poolCfg.RateLimit = &rl
	}
	app.pool = apiclient.NewPool(poolCfg)

	house, err := houseclient.New(apiclient.FromFactory(app.pool), cfg.House(), app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize house client: %w", err)
	}
	app.house = house

	app.logger.Debug("application ready",
		"base_address", cfg.Client.BaseAddress,
		"rate_limited", poolCfg.RateLimit != nil)

	return app, nil
}

// House exposes the session.
func (app *Application) House() *houseclient.Client { return app.house }

// Close releases idle connections held by the pool.
func (app *Application) Close() {
	app.pool.CloseIdleConnections()
}

type loginOutput struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	Subject     string    `json:"subject,omitempty"`
	Scopes      []string  `json:"scopes,omitempty"`
}

// Login signs in and prints the issued token as JSON.
func (app *Application) Login(ctx context.Context, creds Credentials) error {
	res, err := app.signIn(ctx, creds)
	if err != nil {
		return err
	}

	out := loginOutput{
		AccessToken: res.AccessToken,
		TokenType:   res.TokenType,
		ExpiresAt:   res.ExpiresAt.UTC(),
	}
	// Opaque tokens are fine, claims are informational
	if claims, err := res.Claims(); err == nil {
		out.Subject = claims.Subject
		out.Scopes = claims.Scope
	}

	enc := json.NewEncoder(app.out)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// ListDevices signs in and prints one page of devices as a table.
func (app *Application) ListDevices(ctx context.Context, creds Credentials, page, size int) error {
	if _, err := app.signIn(ctx, creds); err != nil {
		return err
	}

	res, err := app.house.Devices().List(ctx, page, size)
	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}
	if !res.Success {
		return rejected("list devices", res.Err())
	}

	tw := tabwriter.NewWriter(app.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUUID\tNAME\tORDER\tREAD ONLY")
	for _, d := range res.Data.Data {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%t\n", d.DeviceID, d.AlternateID, d.Name, d.DisplayOrder, d.IsReadOnly)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(app.out, "page %d, %d of %d devices\n", res.Data.Page, len(res.Data.Data), res.Data.TotalCount)
	return nil
}

// LogReading signs in, records the reading and prints its id.
func (app *Application) LogReading(ctx context.Context, creds Credentials, reading sensorlogging.Reading) (uuid.UUID, error) {
	if err := reading.Validate(); err != nil {
		return uuid.Nil, err
	}
	if _, err := app.signIn(ctx, creds); err != nil {
		return uuid.Nil, err
	}

	res, err := app.house.SensorLogging().Log(ctx, reading)
	if err != nil {
		return uuid.Nil, fmt.Errorf("log reading: %w", err)
	}
	if !res.Success {
		return uuid.Nil, rejected("log reading", res.Err())
	}

	fmt.Fprintln(app.out, res.Data)
	return res.Data, nil
}

func (app *Application) signIn(ctx context.Context, creds Credentials) (*houseclient.LoginResult, error) {
	res, err := app.house.Login(ctx, creds.Username, creds.Password)
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, rejected("login", res.Err())
	}
	return res, nil
}

func rejected(op string, apiErr error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrRejected, apiErr)
}
