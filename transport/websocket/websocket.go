// Package websocket implements the gateway transport on top of
// github.com/coder/websocket.
//
// Each Dial opens one websocket connection and starts a read loop that
// delivers inbound text frames through transport.Callbacks. Binary frames
// are ignored. The read loop owns close detection: remote close handshakes
// and read failures both terminate in exactly one OnClose callback.
package websocket

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/coder/websocket"

	"github.com/backendstack21/realtime-pubsub-go/transport"
)

// DefaultReadLimit is the maximum inbound frame size in bytes.
const DefaultReadLimit = 65536

// Dialer opens websocket channels to the messaging gateway.
type Dialer struct {
	readLimit  int64
	httpClient *http.Client
	header     http.Header
	logger     *slog.Logger
}

// New creates a websocket dialer.
func New(opts ...Option) *Dialer {
	o := newOptions(opts...)
	return &Dialer{
		readLimit:  o.readLimit,
		httpClient: o.httpClient,
		header:     o.header,
		logger:     o.logger,
	}
}

// Dial opens a websocket connection and starts its read loop.
func (d *Dialer) Dial(ctx context.Context, url string, cb transport.Callbacks) (transport.Channel, error) {
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPClient: d.httpClient,
		HTTPHeader: d.header,
	})
	if err != nil {
		return nil, errors.Join(transport.ErrDialFailed, err)
	}
	conn.SetReadLimit(d.readLimit)

	ch := &channel{
		conn:   conn,
		logger: d.logger,
	}
	go ch.readLoop(cb)
	return ch, nil
}

// channel wraps one websocket connection.
type channel struct {
	conn   *websocket.Conn
	logger *slog.Logger
	closed atomic.Bool
}

func (c *channel) Send(ctx context.Context, data []byte) error {
	if c.closed.Load() {
		return transport.ErrChannelClosed
	}
	if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
		return errors.Join(transport.ErrChannelClosed, err)
	}
	return nil
}

func (c *channel) Close(code int, reason string) error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.logger.Debug("closing websocket channel", "code", code, "reason", reason)
	return c.conn.Close(websocket.StatusCode(code), reason)
}

// readLoop pumps inbound frames until the connection terminates, then
// reports the close reason. It runs on its own goroutine so slow listeners
// delay only this connection's delivery.
func (c *channel) readLoop(cb transport.Callbacks) {
	ctx := context.Background()
	for {
		typ, data, err := c.conn.Read(ctx)
		if err != nil {
			c.closed.Store(true)
			cb.Closed(closeInfoFrom(err, cb))
			return
		}
		if typ != websocket.MessageText {
			c.logger.Debug("ignoring non-text frame", "type", typ)
			continue
		}
		cb.Message(data)
	}
}

// closeInfoFrom maps a read error to close info. Errors that are not part
// of a close handshake are surfaced via OnError and reported as an
// abnormal closure.
func closeInfoFrom(err error, cb transport.Callbacks) transport.CloseInfo {
	var ce websocket.CloseError
	if errors.As(err, &ce) {
		return transport.CloseInfo{Code: int(ce.Code), Reason: ce.Reason}
	}
	cb.Errored(err)
	return transport.CloseInfo{Code: transport.AbnormalClosure, Reason: err.Error()}
}
