package realtime

import (
	"errors"
	"fmt"
	"time"
)

// Client errors.
// Use errors.Is() to check for these as they may be wrapped with context.
var (
	// ErrNotConnected indicates an outbound operation was attempted while
	// the connection is not open. The operation is not queued or retried.
	ErrNotConnected = errors.New("not connected to the messaging gateway")

	// ErrURLProviderRequired indicates the client was constructed without
	// a websocket URL provider.
	ErrURLProviderRequired = errors.New("websocket url provider is required")

	// ErrEmptyURL indicates the URL provider returned an empty address.
	ErrEmptyURL = errors.New("websocket url is not provided")

	// ErrWaitCanceled indicates a wait was canceled by the caller before
	// the event arrived or the timeout elapsed.
	ErrWaitCanceled = errors.New("wait canceled")
)

// TimeoutError indicates a wait did not resolve before its deadline.
// It is delivered as the wait's failure, never logged as fatal.
type TimeoutError struct {
	Event   string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout waiting for event %q after %s", e.Event, e.Timeout)
}

// IsTimeout checks if an error indicates a wait timeout.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// MalformedMessageError indicates an inbound frame failed to decode or did
// not have the expected shape. The offending frame is dropped and reported
// via the "error" event; the connection stays up.
type MalformedMessageError struct {
	Reason string
	Cause  error
}

func (e *MalformedMessageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("malformed message: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("malformed message: %s", e.Reason)
}

func (e *MalformedMessageError) Unwrap() error {
	return e.Cause
}

// IsMalformedMessage checks if an error indicates a malformed inbound message.
func IsMalformedMessage(err error) bool {
	var me *MalformedMessageError
	return errors.As(err, &me)
}
