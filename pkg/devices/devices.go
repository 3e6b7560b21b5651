// Package devices is the client for the House devices API.
package devices

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sannel/house/pkg/apiclient"
)

// ClientName selects this client's connection from a Factory.
const ClientName = "DevicesClient"

// ResourcePath is the root of the devices API.
const ResourcePath = "/api/v1/Devices"

// ErrInvalidPage is returned for out of range paging arguments.
var ErrInvalidPage = errors.New("devices: page index must be >= 0 and page size > 0")

// Device is a registered House device.
type Device struct {
	DeviceID     int       `json:"deviceId"`
	AlternateID  uuid.UUID `json:"alternateId"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	DisplayOrder int       `json:"displayOrder"`
	DateCreated  time.Time `json:"dateCreated"`
	IsReadOnly   bool      `json:"isReadOnly"`
}

// Page is one page of devices.
type Page struct {
	Data       []Device `json:"data"`
	TotalCount int      `json:"totalCount"`
	Page       int      `json:"page"`
	PageSize   int      `json:"pageSize"`
}

// Client talks to the devices API with whatever token it was last given.
type Client struct {
	base *apiclient.Base
}

// New creates a devices client rooted at baseAddress.
func New(conn apiclient.Connection, baseAddress string, logger *slog.Logger) (*Client, error) {
	base, err := apiclient.NewBase(ClientName, conn, baseAddress, logger)
	if err != nil {
		return nil, fmt.Errorf("devices client: %w", err)
	}
	return &Client{base: base}, nil
}

// AuthToken returns the bearer token sent with requests.
func (c *Client) AuthToken() string { return c.base.AuthToken() }

// SetAuthToken replaces the bearer token sent with requests.
func (c *Client) SetAuthToken(token string) { c.base.SetAuthToken(token) }

// List returns one page of devices ordered by display order.
func (c *Client) List(ctx context.Context, pageIndex, pageSize int) (*apiclient.Result[Page], error) {
	if pageIndex < 0 || pageSize <= 0 {
		return nil, ErrInvalidPage
	}

	q := url.Values{
		"page": {strconv.Itoa(pageIndex)},
		"size": {strconv.Itoa(pageSize)},
	}
	return apiclient.Get[apiclient.Result[Page]](ctx, c.base, ResourcePath+"?"+q.Encode())
}

// Get returns the device with the given id.
func (c *Client) Get(ctx context.Context, deviceID int) (*apiclient.Result[Device], error) {
	return apiclient.Get[apiclient.Result[Device]](ctx, c.base, ResourcePath+"/"+strconv.Itoa(deviceID))
}

// GetByUUID returns the device registered under the given alternate id.
func (c *Client) GetByUUID(ctx context.Context, id uuid.UUID) (*apiclient.Result[Device], error) {
	return apiclient.Get[apiclient.Result[Device]](ctx, c.base, ResourcePath+"/GetByUuid/"+id.String())
}
