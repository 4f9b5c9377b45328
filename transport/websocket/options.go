package websocket

import (
	"log/slog"
	"net/http"

	"github.com/backendstack21/realtime-pubsub-go/transport"
)

// options holds configuration for the dialer (unexported)
type options struct {
	readLimit  int64
	httpClient *http.Client
	header     http.Header
	logger     *slog.Logger
}

// Option configures the websocket dialer
type Option func(*options)

// WithReadLimit sets the maximum inbound frame size in bytes.
func WithReadLimit(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.readLimit = n
		}
	}
}

// WithHTTPClient sets the http client used for the websocket handshake.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		if c != nil {
			o.httpClient = c
		}
	}
}

// WithHeader sets extra headers sent with the websocket handshake.
func WithHeader(h http.Header) Option {
	return func(o *options) {
		o.header = h
	}
}

// WithLogger sets the logger for the dialer and its channels
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
		readLimit: DefaultReadLimit,
		logger:    transport.Logger("transport>websocket"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
