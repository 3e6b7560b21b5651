package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNoConnection is returned when a client has no usable connection source.
var ErrNoConnection = errors.New("apiclient: no connection available")

// Factory hands out HTTP clients by logical name.
type Factory interface {
	Client(name string) *http.Client
}

// FactoryFunc adapts a plain function to a Factory.
type FactoryFunc func(name string) *http.Client

// Client implements Factory.
func (f FactoryFunc) Client(name string) *http.Client { return f(name) }

type sourceKind int

const (
	sourceNone sourceKind = iota
	sourceDirect
	sourceFactory
)

// Connection describes where a client gets its *http.Client from. The zero
// value is not usable; build one with Direct or FromFactory.
type Connection struct {
	kind    sourceKind
	client  *http.Client
	factory Factory
}

// Direct returns a Connection that always uses client.
func Direct(client *http.Client) Connection {
	return Connection{kind: sourceDirect, client: client}
}

// FromFactory returns a Connection that asks factory for a client by name on
// every request.
func FromFactory(factory Factory) Connection {
	return Connection{kind: sourceFactory, factory: factory}
}

// IsDirect reports whether the connection wraps a shared client.
func (c Connection) IsDirect() bool { return c.kind == sourceDirect }

// validate checks the connection can produce a client at all.
func (c Connection) validate() error {
	switch c.kind {
	case sourceDirect:
		if c.client == nil {
			return fmt.Errorf("%w: direct connection has a nil client", ErrNoConnection)
		}
	case sourceFactory:
		if c.factory == nil {
			return fmt.Errorf("%w: nil factory", ErrNoConnection)
		}
	default:
		return ErrNoConnection
	}
	return nil
}

// resolve returns the client to use for a request made by the named client.
func (c Connection) resolve(name string) (*http.Client, error) {
	if c.kind == sourceDirect && c.client != nil {
		return c.client, nil
	}
	if c.kind == sourceFactory && c.factory != nil {
		if client := c.factory.Client(name); client != nil {
			return client, nil
		}
		return nil, fmt.Errorf("%w: factory returned no client for %q", ErrNoConnection, name)
	}
	return nil, ErrNoConnection
}
