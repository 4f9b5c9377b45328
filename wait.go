package realtime

import (
	"context"
	"sync"
	"time"
)

// DefaultWaitTimeout is the wait deadline used when none is given.
const DefaultWaitTimeout = 30 * time.Second

// Wait is a one-shot future for an event. It resolves with the arguments of
// the first matching Emit, or fails with *TimeoutError when the deadline
// elapses first, or with ErrWaitCanceled when canceled. Exactly one of
// these outcomes occurs; the listener and timer are released either way.
type Wait struct {
	emitter *Emitter
	event   string

	mu    sync.Mutex
	sub   *Subscription
	timer *time.Timer

	once   sync.Once
	done   chan struct{}
	result []any
	err    error
}

// WaitFor registers a one-shot wait for the next event matching eventName.
// A timeout <= 0 selects DefaultWaitTimeout.
func (e *Emitter) WaitFor(eventName string, timeout time.Duration) *Wait {
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}

	w := &Wait{
		emitter: e,
		event:   eventName,
		done:    make(chan struct{}),
	}

	// Registration completes under w.mu so a racing resolution cannot
	// observe a half-registered wait.
	w.mu.Lock()
	w.sub = e.On(eventName, func(args ...any) {
		w.resolve(args, nil)
	})
	w.timer = time.AfterFunc(timeout, func() {
		w.resolve(nil, &TimeoutError{Event: eventName, Timeout: timeout})
	})
	w.mu.Unlock()

	return w
}

func (w *Wait) resolve(args []any, err error) {
	w.once.Do(func() {
		w.mu.Lock()
		sub, timer := w.sub, w.timer
		w.mu.Unlock()

		if timer != nil {
			timer.Stop()
		}
		if sub != nil {
			w.emitter.Off(sub)
		}

		w.result, w.err = args, err
		close(w.done)
	})
}

// Event returns the event name this wait is registered for.
func (w *Wait) Event() string {
	return w.event
}

// Done returns a channel closed when the wait has resolved either way.
func (w *Wait) Done() <-chan struct{} {
	return w.done
}

// Cancel resolves the wait with ErrWaitCanceled, deregistering the listener
// and stopping the timer. Canceling an already-resolved wait is a no-op.
func (w *Wait) Cancel() {
	w.resolve(nil, ErrWaitCanceled)
}

// Result blocks until the wait resolves or ctx is done. On success it
// returns the argument list the event was emitted with.
func (w *Wait) Result(ctx context.Context) ([]any, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-w.done:
		return w.result, w.err
	}
}
