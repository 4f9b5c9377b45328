package realtime

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/time/rate"

	"github.com/backendstack21/realtime-pubsub-go/codec"
	"github.com/backendstack21/realtime-pubsub-go/transport"
)

// Default configuration values
var (
	// DefaultInitialReconnectBackoff is the delay before the second
	// connection attempt.
	DefaultInitialReconnectBackoff = time.Second

	// DefaultMaxReconnectBackoff caps the delay between attempts.
	DefaultMaxReconnectBackoff = 60 * time.Second

	// DefaultReadLimit is the maximum inbound frame size in bytes.
	DefaultReadLimit int64 = 65536
)

// URLProvider supplies the websocket address for a connection attempt. It is
// invoked fresh on every attempt so short-lived signed URLs stay valid.
type URLProvider func(ctx context.Context) (string, error)

// config holds client configuration (unexported)
type config struct {
	logger         *slog.Logger
	dialer         transport.Dialer
	codec          codec.Codec
	initialBackoff time.Duration
	maxBackoff     time.Duration
	readLimit      int64
	workerPoolSize int64
	publishLimiter *rate.Limiter
	metricsEnabled bool
}

// Option configures the client
type Option func(*config)

// WithLogger sets a custom logger for the client
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithDialer sets a custom transport dialer. The default is the websocket
// transport; tests typically pass the in-memory channel transport.
func WithDialer(d transport.Dialer) Option {
	return func(c *config) {
		if d != nil {
			c.dialer = d
		}
	}
}

// WithCodec sets the wire codec. The default is JSON.
func WithCodec(cd codec.Codec) Option {
	return func(c *config) {
		if cd != nil {
			c.codec = cd
		}
	}
}

// WithInitialReconnectBackoff sets the delay before the second connection
// attempt. The delay doubles after every failed attempt.
func WithInitialReconnectBackoff(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.initialBackoff = d
		}
	}
}

// WithMaxReconnectBackoff caps the delay between connection attempts.
func WithMaxReconnectBackoff(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.maxBackoff = d
		}
	}
}

// WithReadLimit sets the maximum inbound frame size in bytes. Only applies
// to the default websocket dialer; custom dialers configure their own.
func WithReadLimit(n int64) Option {
	return func(c *config) {
		if n > 0 {
			c.readLimit = n
		}
	}
}

// WithWorkerPoolSize sets the maximum number of concurrently running Async
// listeners. The default is the number of CPUs.
func WithWorkerPoolSize(n int64) Option {
	return func(c *config) {
		if n > 0 {
			c.workerPoolSize = n
		}
	}
}

// WithPublishRateLimit applies a token-bucket limit to outbound messages
// (publish, send, subscribe, unsubscribe). Disabled by default.
func WithPublishRateLimit(limit rate.Limit, burst int) Option {
	return func(c *config) {
		c.publishLimiter = rate.NewLimiter(limit, burst)
	}
}

// WithMetrics enables/disables OpenTelemetry metrics for the client
func WithMetrics(enabled bool) Option {
	return func(c *config) {
		c.metricsEnabled = enabled
	}
}

// newConfig creates a config with defaults and applies provided options
func newConfig(opts ...Option) *config {
	c := &config{
		logger:         slog.Default(),
		codec:          codec.Default(),
		initialBackoff: DefaultInitialReconnectBackoff,
		maxBackoff:     DefaultMaxReconnectBackoff,
		readLimit:      DefaultReadLimit,
		workerPoolSize: int64(runtime.NumCPU()),
		metricsEnabled: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// publishOptions holds per-message options (unexported)
type publishOptions struct {
	messageID string
	compress  bool
}

// PublishOption configures a single publish or send
type PublishOption func(*publishOptions)

// WithMessageID sets the correlation id for the message. When absent, a
// random id is generated.
func WithMessageID(id string) PublishOption {
	return func(o *publishOptions) {
		o.messageID = id
	}
}

// WithCompression asks the gateway to compress the message payload for
// subscribers that negotiated compression.
func WithCompression() PublishOption {
	return func(o *publishOptions) {
		o.compress = true
	}
}

func newPublishOptions(opts ...PublishOption) *publishOptions {
	o := &publishOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
