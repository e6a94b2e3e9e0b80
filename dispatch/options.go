package dispatch

import (
	"fmt"

	"github.com/erraggy/rrest/negotiate"
)

// DefaultMaxBodySize bounds request bodies read by HTTPContext (10 MiB).
const DefaultMaxBodySize int64 = 10 << 20

// Option is a functional option for configuring a Dispatcher.
type Option func(*config) error

type config struct {
	logger         Logger
	assertResponse bool
	acceptPolicy   negotiate.AcceptPolicy
	maxBodySize    int64
	provider       Provider
}

func defaultConfig() *config {
	return &config{
		logger:         NopLogger{},
		assertResponse: true,
		acceptPolicy:   negotiate.AcceptLenient,
		maxBodySize:    DefaultMaxBodySize,
	}
}

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(l Logger) Option {
	return func(c *config) error {
		if l == nil {
			l = NopLogger{}
		}
		c.logger = l
		return nil
	}
}

// WithAssertResponse toggles validation of handler output against the
// declared response schema. Default is true; production deployments may
// turn it off.
func WithAssertResponse(assert bool) Option {
	return func(c *config) error {
		c.assertResponse = assert
		return nil
	}
}

// WithAcceptPolicy sets how a request without an Accept header is treated.
// Default is negotiate.AcceptLenient.
func WithAcceptPolicy(p negotiate.AcceptPolicy) Option {
	return func(c *config) error {
		c.acceptPolicy = p
		return nil
	}
}

// WithMaxBodySize bounds the request body size in bytes.
// Default is DefaultMaxBodySize.
func WithMaxBodySize(n int64) Option {
	return func(c *config) error {
		if n <= 0 {
			return fmt.Errorf("dispatch: max body size must be positive, got %d", n)
		}
		c.maxBodySize = n
		return nil
	}
}

// WithProvider sets the transport routes are bound to on registration.
func WithProvider(p Provider) Option {
	return func(c *config) error {
		if p == nil {
			return fmt.Errorf("dispatch: provider cannot be nil")
		}
		c.provider = p
		return nil
	}
}
