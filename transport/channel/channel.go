// Package channel provides an in-memory gateway transport built on Go
// channels.
//
// IMPORTANT: the channel transport never leaves the process. It exists for
// tests and local development: the test harness plays the role of the
// messaging gateway by injecting inbound frames and reading the frames the
// client sent.
//
// The transport is also the place to script connection behavior: queued
// dial failures exercise the client's reconnect loop, and CloseRemote
// simulates a server-initiated close with an arbitrary close code.
package channel

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/backendstack21/realtime-pubsub-go/transport"
)

// Transport implements transport.Dialer against an in-process peer.
// At most one channel is open at a time; a new Dial replaces the previous
// endpoint, mirroring the single-connection discipline of the client.
type Transport struct {
	mu        sync.Mutex
	cb        transport.Callbacks
	endpoint  *endpoint
	dialErrs  []error
	dialTimes []time.Time

	outbound chan []byte
	dials    atomic.Int64
	logger   *slog.Logger
}

// New creates a new in-memory transport.
func New(opts ...Option) *Transport {
	o := newOptions(opts...)
	return &Transport{
		outbound: make(chan []byte, o.bufferSize),
		logger:   o.logger,
	}
}

// Dial opens an in-memory channel, or fails with the next scripted error.
func (t *Transport) Dial(ctx context.Context, url string, cb transport.Callbacks) (transport.Channel, error) {
	t.dials.Add(1)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.dialTimes = append(t.dialTimes, time.Now())

	if len(t.dialErrs) > 0 {
		err := t.dialErrs[0]
		t.dialErrs = t.dialErrs[1:]
		t.logger.Debug("scripted dial failure", "url", url, "error", err)
		return nil, err
	}

	ep := &endpoint{t: t}
	t.endpoint = ep
	t.cb = cb
	t.logger.Debug("channel opened", "url", url)
	return ep, nil
}

// FailDials queues errors returned by the next Dial calls, in order.
func (t *Transport) FailDials(errs ...error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dialErrs = append(t.dialErrs, errs...)
}

// DialCount returns the number of Dial attempts observed so far.
func (t *Transport) DialCount() int64 {
	return t.dials.Load()
}

// DialTimes returns the time of each Dial attempt observed so far, in
// attempt order. Useful for asserting retry schedules.
func (t *Transport) DialTimes() []time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]time.Time(nil), t.dialTimes...)
}

// Inject delivers an inbound frame to the currently open channel.
// Frames injected from a single goroutine arrive in order. Frames injected
// while no channel is open are dropped.
func (t *Transport) Inject(data []byte) {
	t.mu.Lock()
	ep, cb := t.endpoint, t.cb
	t.mu.Unlock()

	if ep == nil || ep.closed.Load() {
		t.logger.Warn("dropping injected frame, no open channel")
		return
	}
	cb.Message(data)
}

// Outbound returns the frames the client has sent, in send order.
func (t *Transport) Outbound() <-chan []byte {
	return t.outbound
}

// CloseRemote simulates a server-initiated close of the current channel.
func (t *Transport) CloseRemote(code int, reason string) {
	t.mu.Lock()
	ep, cb := t.endpoint, t.cb
	t.endpoint = nil
	t.mu.Unlock()

	if ep == nil || !ep.closed.CompareAndSwap(false, true) {
		return
	}
	cb.Closed(transport.CloseInfo{Code: code, Reason: reason})
}

// FailRemote simulates a transport failure on the current channel: an error
// callback followed by an abnormal close.
func (t *Transport) FailRemote(err error) {
	t.mu.Lock()
	ep, cb := t.endpoint, t.cb
	t.endpoint = nil
	t.mu.Unlock()

	if ep == nil || !ep.closed.CompareAndSwap(false, true) {
		return
	}
	cb.Errored(err)
	cb.Closed(transport.CloseInfo{Code: transport.AbnormalClosure, Reason: err.Error()})
}

// endpoint is the client side of an in-memory channel.
type endpoint struct {
	t      *Transport
	closed atomic.Bool
}

func (e *endpoint) Send(ctx context.Context, data []byte) error {
	if e.closed.Load() {
		return transport.ErrChannelClosed
	}
	// Copy so the caller may reuse its buffer.
	frame := make([]byte, len(data))
	copy(frame, data)

	select {
	case e.t.outbound <- frame:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close performs the local side of the close handshake. The close callback
// fires on a separate goroutine, as a network transport would deliver it.
func (e *endpoint) Close(code int, reason string) error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}

	e.t.mu.Lock()
	cb := e.t.cb
	if e.t.endpoint == e {
		e.t.endpoint = nil
	}
	e.t.mu.Unlock()

	go cb.Closed(transport.CloseInfo{Code: code, Reason: reason})
	return nil
}
