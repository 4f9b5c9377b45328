package channel

import (
	"log/slog"

	"github.com/backendstack21/realtime-pubsub-go/transport"
)

// DefaultBufferSize is the outbound frame buffer size.
var DefaultBufferSize uint = 64

// options holds configuration for the transport (unexported)
type options struct {
	bufferSize uint
	logger     *slog.Logger
}

// Option configures the channel transport
type Option func(*options)

// WithBufferSize sets the outbound frame buffer size.
func WithBufferSize(size uint) Option {
	return func(o *options) {
		if size > 0 {
			o.bufferSize = size
		}
	}
}

// WithLogger sets the logger for the transport
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// newOptions creates options with defaults and applies provided options
func newOptions(opts ...Option) *options {
	o := &options{
		bufferSize: DefaultBufferSize,
		logger:     transport.Logger("transport>channel"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
