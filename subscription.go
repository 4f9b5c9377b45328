package realtime

import "sync/atomic"

// Listener is a callback invoked with the arguments passed to Emit.
// For incoming topic messages the arguments are (*IncomingMessage, ReplyFunc);
// synthetic events carry their own payloads (see package documentation).
type Listener func(args ...any)

// Subscription identifies one listener registration on one pattern.
// Removal is by handle: pass the subscription back to Off. Registering the
// same function twice yields two independent subscriptions that both fire.
type Subscription struct {
	id      string
	pattern string
	fn      Listener

	// set by Once wrappers to guarantee a single invocation
	fired atomic.Bool
}

// ID returns the subscription id
func (s *Subscription) ID() string {
	return s.id
}

// Pattern returns the pattern this subscription is registered under
func (s *Subscription) Pattern() string {
	return s.pattern
}
