// Package transport provides shared types and interfaces for messaging
// gateway transport implementations.
//
// Transport implementations (websocket, channel) should import this package
// rather than the parent realtime package to avoid import cycles.
package transport

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Transport errors
var (
	ErrChannelClosed = errors.New("channel closed")
	ErrDialFailed    = errors.New("dial failed")
)

// NormalClosure is the close code used for graceful shutdown. It matches the
// websocket normal-closure status code (RFC 6455, 1000).
const NormalClosure = 1000

// AbnormalClosure is the close code reported when a channel terminated
// without a closing handshake (RFC 6455, 1006).
const AbnormalClosure = 1006

// CloseInfo describes why a channel was closed.
type CloseInfo struct {
	Code   int
	Reason string
}

// Normal reports whether the channel closed with a normal-closure code.
func (ci CloseInfo) Normal() bool {
	return ci.Code == NormalClosure
}

func (ci CloseInfo) String() string {
	if ci.Reason == "" {
		return "close " + strconv.Itoa(ci.Code)
	}
	return "close " + strconv.Itoa(ci.Code) + ": " + ci.Reason
}

// Callbacks are the hooks a channel invokes as it delivers inbound traffic.
// All callbacks are optional; nil hooks are skipped. A channel delivers
// frames for a single connection in arrival order.
type Callbacks struct {
	// OnMessage is invoked for every inbound text frame.
	OnMessage func(data []byte)

	// OnClose is invoked exactly once when the channel terminates,
	// whether by local close, remote close or transport failure.
	OnClose func(info CloseInfo)

	// OnError is invoked for transport-level failures that do not map to
	// a close handshake (read errors, protocol violations).
	OnError func(err error)
}

func (cb Callbacks) Message(data []byte) {
	if cb.OnMessage != nil {
		cb.OnMessage(data)
	}
}

func (cb Callbacks) Closed(info CloseInfo) {
	if cb.OnClose != nil {
		cb.OnClose(info)
	}
}

func (cb Callbacks) Errored(err error) {
	if cb.OnError != nil {
		cb.OnError(err)
	}
}

// Channel is one open duplex connection to the messaging gateway.
// Implementations must be safe for concurrent use.
type Channel interface {
	// Send writes a single text frame to the gateway.
	// Returns ErrChannelClosed if the channel is no longer open.
	Send(ctx context.Context, data []byte) error

	// Close performs a close handshake with the given code and reason.
	// Closing an already-closed channel is a no-op.
	Close(code int, reason string) error
}

// Dialer opens channels to the messaging gateway. The callbacks become
// active before Dial returns, so the first inbound frame is never lost.
type Dialer interface {
	Dial(ctx context.Context, url string, cb Callbacks) (Channel, error)
}

// NewID generates a new unique message id: a random uuid formatted
// without separators.
func NewID() string {
	u, _ := uuid.NewRandom()
	return strings.ReplaceAll(u.String(), "-", "")
}

// Logger creates a component logger derived from the default slog logger.
func Logger(component string) *slog.Logger {
	return slog.Default().With("component", component)
}
