package houseclient

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sannel/house/pkg/apiclient"
)

// Configuration keys resolved when a Client is built.
const (
	KeyBaseAddress  = "Client:BaseAddress"
	KeyClientID     = "Client:ClientId"
	KeyClientSecret = "Client:ClientSecret"
)

var (
	// ErrMissingConfig is wrapped by ConfigError for absent keys.
	ErrMissingConfig = errors.New("missing required configuration")

	// ErrInvalidConfig is wrapped by ConfigError for unusable values.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ConfigError names the configuration key that stopped a Client from being
// built.
type ConfigError struct {
	Key string
	Err error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Key, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error { return e.Err }

// Config is the static configuration of a session.
type Config struct {
	BaseAddress  string // Required: gateway base address, e.g. https://gateway.dev.local
	ClientID     string // Required: OAuth client id
	ClientSecret string // Required: OAuth client secret
}

// ConfigFromLookup resolves the Client:* keys through lookup once.
func ConfigFromLookup(lookup func(key string) string) Config {
	return Config{
		BaseAddress:  strings.TrimSpace(lookup(KeyBaseAddress)),
		ClientID:     strings.TrimSpace(lookup(KeyClientID)),
		ClientSecret: strings.TrimSpace(lookup(KeyClientSecret)),
	}
}

// Validate reports every missing or unusable key, joined.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.BaseAddress) == "" {
		errs = append(errs, &ConfigError{Key: KeyBaseAddress, Err: ErrMissingConfig})
	} else if _, err := apiclient.ParseBaseAddress(c.BaseAddress); err != nil {
		errs = append(errs, &ConfigError{Key: KeyBaseAddress, Err: fmt.Errorf("%w: %v", ErrInvalidConfig, err)})
	}

	if strings.TrimSpace(c.ClientID) == "" {
		errs = append(errs, &ConfigError{Key: KeyClientID, Err: ErrMissingConfig})
	}

	if strings.TrimSpace(c.ClientSecret) == "" {
		errs = append(errs, &ConfigError{Key: KeyClientSecret, Err: ErrMissingConfig})
	}

	return errors.Join(errs...)
}
