package realtime

import (
	"log/slog"
	"time"
)

// WaitFor correlates a just-sent message with its acknowledgment from the
// gateway and with replies from other subscribers or backend services.
// Publish and Send return one bound to the message's correlation id.
type WaitFor struct {
	emitter   *Emitter
	messageID string
	logger    *slog.Logger
}

func newWaitFor(e *Emitter, messageID string, logger *slog.Logger) *WaitFor {
	return &WaitFor{
		emitter:   e,
		messageID: messageID,
		logger:    logger,
	}
}

// MessageID returns the correlation id of the message this WaitFor tracks.
func (w *WaitFor) MessageID() string {
	return w.messageID
}

// WaitForAck waits for the gateway acknowledgment of the message.
// A timeout <= 0 selects DefaultWaitTimeout.
func (w *WaitFor) WaitForAck(timeout time.Duration) *Wait {
	event := "ack." + w.messageID
	w.logger.Debug("waiting for acknowledgment", "event", event, "timeout", timeout)
	return w.emitter.WaitFor(event, timeout)
}

// WaitForReply waits for a correlated reply to the message.
// A timeout <= 0 selects DefaultWaitTimeout.
func (w *WaitFor) WaitForReply(timeout time.Duration) *Wait {
	event := "response." + w.messageID
	w.logger.Debug("waiting for reply", "event", event, "timeout", timeout)
	return w.emitter.WaitFor(event, timeout)
}
