package realtime

import (
	"context"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"

	"github.com/backendstack21/realtime-pubsub-go/codec"
	"github.com/backendstack21/realtime-pubsub-go/transport"
	"github.com/backendstack21/realtime-pubsub-go/transport/websocket"
)

// ConnectionState is the lifecycle state of the client's connection.
type ConnectionState int32

const (
	// StateDisconnected means no channel is open and no attempt is running.
	StateDisconnected ConnectionState = iota
	// StateConnecting means the retry loop is trying to open a channel.
	StateConnecting
	// StateOpen means a channel is open and outbound operations may run.
	StateOpen
	// StateClosing means a graceful close is in progress.
	StateClosing
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// ReplyFunc publishes a correlated response to the sender of an incoming
// message. The status defaults to "ok" when empty. The returned WaitFor
// tracks the gateway acknowledgment of the reply itself.
type ReplyFunc func(ctx context.Context, data any, status string, compress bool) (*WaitFor, error)

// Client is a Realtime Pub/Sub client: it owns one websocket channel to the
// messaging gateway, dispatches incoming messages through its embedded
// Emitter under "<topic>.<messageType>" event names, and correlates
// acknowledgments and replies to published messages.
//
// Methods are safe for concurrent use. Exactly one channel is current at a
// time; outbound operations fail fast with ErrNotConnected while it is
// absent.
type Client struct {
	*Emitter

	logger   *slog.Logger
	provider URLProvider
	dialer   transport.Dialer
	codec    codec.Codec

	initialBackoff time.Duration
	maxBackoff     time.Duration
	limiter        *rate.Limiter
	pool           *workerPool

	state atomic.Int32

	mu          sync.RWMutex
	ch          transport.Channel
	retryCancel context.CancelFunc

	topicsMu sync.RWMutex
	topics   map[string]struct{}

	metricsEnabled bool
	published      metric.Int64Counter
	reconnects     metric.Int64Counter
	dropped        metric.Int64Counter
}

// NewClient creates a client for the gateway reachable through the given
// URL provider. The provider is required; it is invoked fresh on every
// connection attempt (it typically signs an access token into the URL).
func NewClient(provider URLProvider, opts ...Option) (*Client, error) {
	if provider == nil {
		return nil, ErrURLProviderRequired
	}

	cfg := newConfig(opts...)
	logger := cfg.logger.With("component", "realtime>client")

	dialer := cfg.dialer
	if dialer == nil {
		dialer = websocket.New(
			websocket.WithReadLimit(cfg.readLimit),
			websocket.WithLogger(logger),
		)
	}

	c := &Client{
		Emitter: NewEmitter(
			WithEmitterLogger(logger),
			WithEmitterMetrics(cfg.metricsEnabled),
		),
		logger:         logger,
		provider:       provider,
		dialer:         dialer,
		codec:          cfg.codec,
		initialBackoff: cfg.initialBackoff,
		maxBackoff:     cfg.maxBackoff,
		limiter:        cfg.publishLimiter,
		pool:           newWorkerPool(cfg.workerPoolSize, logger),
		topics:         make(map[string]struct{}),
		metricsEnabled: cfg.metricsEnabled,
	}

	if c.metricsEnabled {
		meter := otel.Meter("realtime.client")
		c.published, _ = meter.Int64Counter("realtime.messages.published",
			metric.WithDescription("Total number of outbound messages"),
			metric.WithUnit("{message}"),
		)
		c.reconnects, _ = meter.Int64Counter("realtime.connect.attempts",
			metric.WithDescription("Total number of connection attempts"),
			metric.WithUnit("{attempt}"),
		)
		c.dropped, _ = meter.Int64Counter("realtime.frames.dropped",
			metric.WithDescription("Total number of malformed inbound frames dropped"),
			metric.WithUnit("{frame}"),
		)
	}

	// Built-in listeners, registered once and never removed.
	c.On("priv/acks.ack", c.onAck)
	c.On("*.response", c.onResponse)
	c.On("main.welcome", c.onWelcome)

	return c, nil
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	return ConnectionState(c.state.Load())
}

// IsConnected reports whether a channel is currently open.
func (c *Client) IsConnected() bool {
	return c.State() == StateOpen
}

// Connect starts the asynchronous connect/retry loop. It is a no-op, only
// logged, when the client is already connecting or connected. The loop
// retries with exponential backoff until a channel opens or ctx is done.
//
// Previously subscribed topics are NOT resubscribed after a reconnect;
// resubscribe from a "session.started" listener.
func (c *Client) Connect(ctx context.Context) {
	if !c.state.CompareAndSwap(int32(StateDisconnected), int32(StateConnecting)) {
		c.logger.Warn("ignoring connect", "state", c.State())
		return
	}

	rctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.retryCancel = cancel
	c.mu.Unlock()

	go c.run(rctx)
}

// run drives connection attempts until one succeeds or ctx is done.
func (c *Client) run(ctx context.Context) {
	backoff := c.initialBackoff
	for {
		err := c.attempt(ctx)
		if err == nil {
			return
		}
		if ctx.Err() != nil {
			c.state.CompareAndSwap(int32(StateConnecting), int32(StateDisconnected))
			return
		}
		c.emitError(err)

		c.logger.Warn("retrying connection", "backoff", backoff)
		select {
		case <-ctx.Done():
			c.state.CompareAndSwap(int32(StateConnecting), int32(StateDisconnected))
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, c.maxBackoff)
	}
}

// attempt makes a single connection attempt.
func (c *Client) attempt(ctx context.Context) error {
	if c.metricsEnabled && c.reconnects != nil {
		c.reconnects.Add(ctx, 1)
	}

	wsURL, err := c.provider(ctx)
	if err != nil {
		return err
	}
	if wsURL == "" {
		return ErrEmptyURL
	}

	c.logger.Info("connecting to websocket", "url", maskURL(wsURL))

	ch, err := c.dialer.Dial(ctx, wsURL, transport.Callbacks{
		OnMessage: c.handleMessage,
		OnClose:   c.handleClose,
		OnError:   c.handleError,
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	if ctx.Err() != nil {
		// Disconnect won the race while the dial was in flight.
		c.mu.Unlock()
		c.logger.Debug("discarding channel opened after disconnect")
		_ = ch.Close(transport.NormalClosure, "normal closure")
		return ctx.Err()
	}
	c.ch = ch
	c.state.Store(int32(StateOpen))
	c.mu.Unlock()
	c.logger.Info("websocket connection opened")
	return nil
}

// Disconnect gracefully closes the current channel with a normal-closure
// code and stops any in-flight retry loop. No reconnect is attempted.
func (c *Client) Disconnect() {
	c.mu.Lock()
	cancel := c.retryCancel
	c.retryCancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	if c.state.CompareAndSwap(int32(StateOpen), int32(StateClosing)) {
		// Read the channel after winning the transition so a connection
		// that opened concurrently is the one that gets closed.
		c.mu.Lock()
		ch := c.ch
		c.mu.Unlock()

		c.logger.Info("disconnecting from websocket")
		if ch != nil {
			if err := ch.Close(transport.NormalClosure, "normal closure"); err != nil {
				c.emitError(err)
			}
		}
		return
	}
	c.state.CompareAndSwap(int32(StateConnecting), int32(StateDisconnected))
}

// SubscribeRemoteTopic subscribes this connection to a topic on the
// gateway. Messages published to the topic are then dispatched under
// "<topic>.<messageType>" events.
func (c *Client) SubscribeRemoteTopic(ctx context.Context, topic string) error {
	c.logger.Info("subscribing to topic", "topic", topic)
	err := c.sendEnvelope(ctx, map[string]any{
		"type": "subscribe",
		"data": map[string]any{"topic": topic},
	})
	if err != nil {
		return err
	}

	c.topicsMu.Lock()
	c.topics[topic] = struct{}{}
	c.topicsMu.Unlock()
	return nil
}

// UnsubscribeRemoteTopic removes this connection's subscription to a topic.
func (c *Client) UnsubscribeRemoteTopic(ctx context.Context, topic string) error {
	c.logger.Info("unsubscribing from topic", "topic", topic)
	err := c.sendEnvelope(ctx, map[string]any{
		"type": "unsubscribe",
		"data": map[string]any{"topic": topic},
	})
	if err != nil {
		return err
	}

	c.topicsMu.Lock()
	delete(c.topics, topic)
	c.topicsMu.Unlock()
	return nil
}

// SubscribedTopics returns the topics this client believes it is subscribed
// to, sorted. The gateway drops subscriptions on disconnect; use this from
// a "session.started" listener to resubscribe after a reconnect.
func (c *Client) SubscribedTopics() []string {
	c.topicsMu.RLock()
	defer c.topicsMu.RUnlock()
	topics := make([]string, 0, len(c.topics))
	for t := range c.topics {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}

// Publish sends a message to a topic. It returns a WaitFor bound to the
// message's correlation id (generated unless WithMessageID is given).
func (c *Client) Publish(ctx context.Context, topic string, payload any, messageType string, opts ...PublishOption) (*WaitFor, error) {
	o := newPublishOptions(opts...)
	id := o.messageID
	if id == "" {
		id = transport.NewID()
	}

	err := c.sendEnvelope(ctx, map[string]any{
		"type": "publish",
		"data": map[string]any{
			"topic":       topic,
			"messageType": messageType,
			"compress":    o.compress,
			"payload":     payload,
			"id":          id,
		},
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug("published message", "topic", topic, "messageType", messageType, "id", id)
	return newWaitFor(c.Emitter, id, c.logger), nil
}

// Send delivers a message directly to the backend service instead of a
// topic. It returns a WaitFor bound to the message's correlation id.
func (c *Client) Send(ctx context.Context, payload any, messageType string, opts ...PublishOption) (*WaitFor, error) {
	o := newPublishOptions(opts...)
	id := o.messageID
	if id == "" {
		id = transport.NewID()
	}

	err := c.sendEnvelope(ctx, map[string]any{
		"type": "message",
		"data": map[string]any{
			"messageType": messageType,
			"compress":    o.compress,
			"payload":     payload,
			"id":          id,
		},
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug("sent message", "messageType", messageType, "id", id)
	return newWaitFor(c.Emitter, id, c.logger), nil
}

// sendEnvelope serializes a command envelope and writes it to the current
// channel. Fails fast with ErrNotConnected while no channel is open.
func (c *Client) sendEnvelope(ctx context.Context, envelope map[string]any) error {
	c.mu.RLock()
	ch := c.ch
	c.mu.RUnlock()

	if c.State() != StateOpen || ch == nil {
		return ErrNotConnected
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	data, err := c.codec.Encode(envelope)
	if err != nil {
		return err
	}
	if err := ch.Send(ctx, data); err != nil {
		return err
	}

	if c.metricsEnabled && c.published != nil {
		typ, _ := envelope["type"].(string)
		c.published.Add(ctx, 1, metric.WithAttributes(attribute.String("type", typ)))
	}
	return nil
}

// handleMessage decodes one inbound frame and dispatches it. A frame that
// fails to decode is dropped and reported via the "error" event; it never
// tears down the connection.
func (c *Client) handleMessage(data []byte) {
	envelope, err := c.codec.Decode(data)
	if err != nil {
		c.dropFrame(&MalformedMessageError{Reason: "frame decode failed", Cause: err})
		return
	}

	msg := IncomingMessageFrom(envelope)
	c.logger.Debug("incoming message", "topic", msg.Topic, "messageType", msg.MessageType)

	if msg.MessageType == "" {
		return
	}
	c.Emit(msg.Topic+"."+msg.MessageType, msg, c.replyFunc(msg))
}

func (c *Client) dropFrame(err error) {
	c.logger.Warn("dropping inbound frame", "error", err)
	if c.metricsEnabled && c.dropped != nil {
		c.dropped.Add(context.Background(), 1)
	}
	c.emitError(err)
}

// handleClose reacts to the channel closing. Normal closure releases the
// worker pool and stays disconnected; any other reason reconnects.
func (c *Client) handleClose(info transport.CloseInfo) {
	c.logger.Info("websocket connection closed", "code", info.Code, "reason", info.Reason)

	c.mu.Lock()
	c.ch = nil
	c.mu.Unlock()
	c.state.Store(int32(StateDisconnected))

	c.Emit("close", info)

	if info.Normal() {
		c.pool.close()
		return
	}
	c.Connect(context.Background())
}

func (c *Client) handleError(err error) {
	c.emitError(err)
}

func (c *Client) emitError(err error) {
	c.logger.Error("websocket error", "error", err)
	c.Emit("error", err)
}

// replyFunc builds the reply capability handed to listeners together with
// an incoming message. The closure captures only the message; the ids it
// needs are extracted when the reply is sent, because not every message
// carries sender information.
func (c *Client) replyFunc(msg *IncomingMessage) ReplyFunc {
	return func(ctx context.Context, data any, status string, compress bool) (*WaitFor, error) {
		md, ok := msg.DataMap()
		if !ok {
			return nil, &MalformedMessageError{Reason: "message data is not available"}
		}
		client, ok := md["client"].(map[string]any)
		if !ok {
			return nil, &MalformedMessageError{Reason: "client info is not available in the message"}
		}
		connectionID, ok := client["connectionId"].(string)
		if !ok || connectionID == "" {
			return nil, &MalformedMessageError{Reason: "connection id is not available in the message"}
		}
		messageID, _ := md["id"].(string)

		if status == "" {
			status = "ok"
		}
		payload := map[string]any{
			"data":   data,
			"status": status,
			"id":     messageID,
		}

		var opts []PublishOption
		if compress {
			opts = append(opts, WithCompression())
		}
		return c.Publish(ctx, "priv/"+connectionID, payload, "response", opts...)
	}
}

// onAck re-emits gateway acknowledgments as "ack.<id>" events so pending
// WaitForAck futures resolve.
func (c *Client) onAck(args ...any) {
	msg := incomingArg(args)
	if msg == nil {
		return
	}
	data, ok := msg.DataMap()
	if !ok {
		return
	}
	ackedID, ok := data["data"].(string)
	if !ok || ackedID == "" {
		return
	}
	c.logger.Debug("received ack", "id", ackedID)
	c.Emit("ack." + ackedID)
}

// onResponse re-emits correlated replies arriving on the private topic as
// "response.<id>" events carrying a *ResponseMessage.
func (c *Client) onResponse(args ...any) {
	msg := incomingArg(args)
	if msg == nil || !strings.HasPrefix(msg.Topic, "priv/") {
		return
	}
	data, ok := msg.DataMap()
	if !ok {
		return
	}
	payload, ok := data["payload"].(map[string]any)
	if !ok {
		return
	}
	id, ok := payload["id"].(string)
	if !ok || id == "" {
		return
	}
	c.logger.Debug("received response", "topic", msg.Topic, "id", id)
	c.Emit("response."+id, ResponseMessageFrom(payload))
}

// onWelcome re-emits the gateway welcome as "session.started" carrying the
// assigned *ConnectionInfo.
func (c *Client) onWelcome(args ...any) {
	msg := incomingArg(args)
	if msg == nil {
		return
	}
	data, ok := msg.DataMap()
	if !ok {
		return
	}
	connection, ok := data["connection"].(map[string]any)
	if !ok {
		return
	}
	info := ConnectionInfoFrom(connection)
	c.logger.Info("session started", "connection", info)
	c.Emit("session.started", info)
}

func incomingArg(args []any) *IncomingMessage {
	if len(args) == 0 {
		return nil
	}
	msg, _ := args[0].(*IncomingMessage)
	return msg
}

// maskURL hides query parameters (typically signed tokens) for logging.
func maskURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "ws://***"
	}
	if u.RawQuery != "" {
		u.RawQuery = "****"
	}
	return u.String()
}
