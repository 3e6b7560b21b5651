// Package sensorlogging is the client for the House sensor logging API.
package sensorlogging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sannel/house/pkg/apiclient"
)

// ClientName selects this client's connection from a Factory.
const ClientName = "SensorLoggingClient"

// ResourcePath is the root of the sensor logging API.
const ResourcePath = "/api/v1/SensorLogging"

var (
	ErrMissingSensorType = errors.New("sensorlogging: sensor type is required")
	ErrNoValues          = errors.New("sensorlogging: a reading needs at least one value")
	ErrMissingDevice     = errors.New("sensorlogging: device id or device uuid is required")
)

// Reading is one sample reported by a sensor.
type Reading struct {
	DeviceID     *int               `json:"deviceId,omitempty"`
	DeviceUUID   uuid.UUID          `json:"deviceUuid"`
	SensorType   string             `json:"sensorType"`
	CreationDate time.Time          `json:"creationDate"`
	Values       map[string]float64 `json:"values"`
}

// Validate checks the reading before it is sent.
func (r Reading) Validate() error {
	if r.SensorType == "" {
		return ErrMissingSensorType
	}
	if len(r.Values) == 0 {
		return ErrNoValues
	}
	if r.DeviceID == nil && r.DeviceUUID == uuid.Nil {
		return ErrMissingDevice
	}
	return nil
}

// Client talks to the sensor logging API with whatever token it was last given.
type Client struct {
	base *apiclient.Base
}

// New creates a sensor logging client rooted at baseAddress.
func New(conn apiclient.Connection, baseAddress string, logger *slog.Logger) (*Client, error) {
	base, err := apiclient.NewBase(ClientName, conn, baseAddress, logger)
	if err != nil {
		return nil, fmt.Errorf("sensor logging client: %w", err)
	}
	return &Client{base: base}, nil
}

// AuthToken returns the bearer token sent with requests.
func (c *Client) AuthToken() string { return c.base.AuthToken() }

// SetAuthToken replaces the bearer token sent with requests.
func (c *Client) SetAuthToken(token string) { c.base.SetAuthToken(token) }

// Log records a reading and returns the id the gateway assigned to it. A
// zero CreationDate is stamped with the current time.
func (c *Client) Log(ctx context.Context, reading Reading) (*apiclient.Result[uuid.UUID], error) {
	if err := reading.Validate(); err != nil {
		return nil, err
	}
	if reading.CreationDate.IsZero() {
		reading.CreationDate = time.Now().UTC()
	}

	return apiclient.Post[apiclient.Result[uuid.UUID]](ctx, c.base, ResourcePath, reading)
}
