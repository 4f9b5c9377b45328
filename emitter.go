package realtime

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/backendstack21/realtime-pubsub-go/transport"
)

// Emitter is a concurrent event dispatcher with wildcard pattern support.
// Listeners are registered under a pattern and fire, in registration order,
// for every emitted event the pattern matches.
//
// On, Off and Emit may be called concurrently. Emit dispatches against a
// snapshot of the registry, so a listener added or removed during an
// in-flight emission may or may not be included in it.
type Emitter struct {
	mu        sync.RWMutex
	listeners map[string][]*Subscription

	logger *slog.Logger

	metricsEnabled bool
	emitted        metric.Int64Counter
	listenerErrs   metric.Int64Counter
}

// NewEmitter creates an empty emitter.
func NewEmitter(opts ...EmitterOption) *Emitter {
	o := newEmitterOptions(opts...)

	e := &Emitter{
		listeners:      make(map[string][]*Subscription),
		logger:         o.logger,
		metricsEnabled: o.metricsEnabled,
	}

	if e.metricsEnabled {
		meter := otel.Meter("realtime.emitter")
		e.emitted, _ = meter.Int64Counter("realtime.events.emitted",
			metric.WithDescription("Total number of events emitted"),
			metric.WithUnit("{event}"),
		)
		e.listenerErrs, _ = meter.Int64Counter("realtime.listener.errors",
			metric.WithDescription("Total number of listener panics recovered during emit"),
			metric.WithUnit("{error}"),
		)
	}

	return e
}

// On registers a listener for a pattern. The same listener registered twice
// under one pattern fires twice per matching event.
func (e *Emitter) On(pattern string, fn Listener) *Subscription {
	sub := &Subscription{
		id:      transport.NewID(),
		pattern: pattern,
		fn:      fn,
	}
	e.add(sub)
	return sub
}

// Once registers a listener that is invoked at most once, even when
// matching events are emitted concurrently or the listener re-enters Emit.
func (e *Emitter) Once(pattern string, fn Listener) *Subscription {
	sub := &Subscription{
		id:      transport.NewID(),
		pattern: pattern,
	}
	sub.fn = func(args ...any) {
		if !sub.fired.CompareAndSwap(false, true) {
			return
		}
		fn(args...)
		e.Off(sub)
	}
	e.add(sub)
	return sub
}

func (e *Emitter) add(sub *Subscription) {
	e.mu.Lock()
	e.listeners[sub.pattern] = append(e.listeners[sub.pattern], sub)
	e.mu.Unlock()
}

// Off removes a subscription. Removing a subscription whose pattern has no
// registrations is reported as a diagnostic, not an error.
func (e *Emitter) Off(sub *Subscription) {
	if sub == nil {
		return
	}

	e.mu.Lock()
	subs, ok := e.listeners[sub.pattern]
	if !ok {
		e.mu.Unlock()
		e.logger.Warn("attempted to remove a listener from a non-existent event",
			"pattern", sub.pattern)
		return
	}

	kept := make([]*Subscription, 0, len(subs))
	for _, s := range subs {
		if s != sub {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		delete(e.listeners, sub.pattern)
	} else {
		e.listeners[sub.pattern] = kept
	}
	removed := len(kept) != len(subs)
	e.mu.Unlock()

	if !removed {
		e.logger.Debug("listener already removed", "pattern", sub.pattern, "subscription", sub.id)
	}
}

// Emit invokes every listener whose pattern matches the event name,
// synchronously on the calling goroutine. Listeners of one pattern fire in
// registration order; no order is promised across patterns. A panicking
// listener is recovered and logged and never prevents the remaining
// listeners from running.
func (e *Emitter) Emit(event string, args ...any) {
	var snapshot []*Subscription
	e.mu.RLock()
	for pattern, subs := range e.listeners {
		if Matches(pattern, event) {
			snapshot = append(snapshot, subs...)
		}
	}
	e.mu.RUnlock()

	if len(snapshot) == 0 {
		return
	}

	if e.metricsEnabled && e.emitted != nil {
		e.emitted.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("event", event)))
	}

	for _, sub := range snapshot {
		e.dispatch(event, sub, args)
	}
}

func (e *Emitter) dispatch(event string, sub *Subscription, args []any) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("listener panic recovered",
				"event", event,
				"subscription", sub.id,
				"pattern", sub.pattern,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			if e.metricsEnabled && e.listenerErrs != nil {
				e.listenerErrs.Add(context.Background(), 1,
					metric.WithAttributes(attribute.String("event", event)))
			}
		}
	}()
	sub.fn(args...)
}

// Len returns the number of patterns with at least one listener.
func (e *Emitter) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners)
}

// emitterOptions holds configuration for the emitter (unexported)
type emitterOptions struct {
	logger         *slog.Logger
	metricsEnabled bool
}

// EmitterOption configures an Emitter
type EmitterOption func(*emitterOptions)

// WithEmitterLogger sets a custom logger for the emitter
func WithEmitterLogger(l *slog.Logger) EmitterOption {
	return func(o *emitterOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithEmitterMetrics enables/disables metrics for the emitter
func WithEmitterMetrics(enabled bool) EmitterOption {
	return func(o *emitterOptions) {
		o.metricsEnabled = enabled
	}
}

func newEmitterOptions(opts ...EmitterOption) *emitterOptions {
	o := &emitterOptions{
		logger:         transport.Logger("emitter"),
		metricsEnabled: true,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
