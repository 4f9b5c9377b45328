package realtime

import "fmt"

// IncomingMessage is a message received on a topic: its type, optional
// compression flag and payload. Data holds the decoded envelope body and is
// usually a map[string]any.
type IncomingMessage struct {
	Topic       string
	MessageType string
	Compression bool
	Data        any
}

// IncomingMessageFrom builds an IncomingMessage from a decoded envelope.
func IncomingMessageFrom(envelope map[string]any) *IncomingMessage {
	topic, _ := envelope["topic"].(string)
	messageType, _ := envelope["messageType"].(string)
	compression, _ := envelope["compression"].(bool)
	return &IncomingMessage{
		Topic:       topic,
		MessageType: messageType,
		Compression: compression,
		Data:        envelope["data"],
	}
}

// DataMap returns the message data as a map, if it is one.
func (m *IncomingMessage) DataMap() (map[string]any, bool) {
	d, ok := m.Data.(map[string]any)
	return d, ok
}

func (m *IncomingMessage) String() string {
	return fmt.Sprintf("IncomingMessage{topic=%q, messageType=%q, compression=%t, data=%v}",
		m.Topic, m.MessageType, m.Compression, m.Data)
}

// ResponseMessage is a correlated reply: the id of the message it answers,
// a status string ("ok" unless the replier chose otherwise) and the reply
// payload.
type ResponseMessage struct {
	ID     string
	Status string
	Data   any
}

// ResponseMessageFrom builds a ResponseMessage from a response payload map.
func ResponseMessageFrom(payload map[string]any) *ResponseMessage {
	id, _ := payload["id"].(string)
	status, _ := payload["status"].(string)
	return &ResponseMessage{
		ID:     id,
		Status: status,
		Data:   payload["data"],
	}
}

func (m *ResponseMessage) String() string {
	return fmt.Sprintf("ResponseMessage{id=%q, status=%q, data=%v}", m.ID, m.Status, m.Data)
}

// ConnectionInfo describes the session the gateway assigned to this client.
// It is the payload of the "session.started" event.
type ConnectionInfo struct {
	ID            string
	AppID         string
	RemoteAddress string
}

// ConnectionInfoFrom builds a ConnectionInfo from a welcome payload map.
func ConnectionInfoFrom(connection map[string]any) *ConnectionInfo {
	id, _ := connection["id"].(string)
	appID, _ := connection["appId"].(string)
	remoteAddress, _ := connection["remoteAddress"].(string)
	return &ConnectionInfo{
		ID:            id,
		AppID:         appID,
		RemoteAddress: remoteAddress,
	}
}

func (c *ConnectionInfo) String() string {
	return fmt.Sprintf("ConnectionInfo{id=%q, appId=%q, remoteAddress=%q}",
		c.ID, c.AppID, c.RemoteAddress)
}

// PresenceStatus is the connection state reported by a presence event.
type PresenceStatus string

const (
	// PresenceConnected indicates the connection is active.
	PresenceConnected PresenceStatus = "connected"
	// PresenceDisconnected indicates the connection has ended.
	PresenceDisconnected PresenceStatus = "disconnected"
)

// PresenceMessage describes a client joining or leaving a topic: who the
// client is (connection id, subject, optional permissions) and whether they
// connected or disconnected.
type PresenceMessage struct {
	ConnectionID string
	Subject      string
	Permissions  []string
	Status       PresenceStatus
}

// PresenceMessageFrom builds a PresenceMessage from an incoming presence
// event, validating the expected shape. A frame that does not carry
// client.connectionId, client.subject and payload.status is rejected with
// *MalformedMessageError.
func PresenceMessageFrom(msg *IncomingMessage) (*PresenceMessage, error) {
	data, ok := msg.DataMap()
	if !ok {
		return nil, &MalformedMessageError{Reason: "presence data must be an object"}
	}

	client, ok := data["client"].(map[string]any)
	if !ok {
		return nil, &MalformedMessageError{Reason: "presence client must be an object"}
	}

	connectionID, ok := client["connectionId"].(string)
	if !ok {
		return nil, &MalformedMessageError{Reason: "presence client.connectionId must be a string"}
	}

	subject, ok := client["subject"].(string)
	if !ok {
		return nil, &MalformedMessageError{Reason: "presence client.subject must be a string"}
	}

	var permissions []string
	if raw, present := client["permissions"]; present && raw != nil {
		list, ok := raw.([]any)
		if !ok {
			return nil, &MalformedMessageError{Reason: "presence client.permissions must be a list"}
		}
		permissions = make([]string, 0, len(list))
		for _, p := range list {
			s, ok := p.(string)
			if !ok {
				return nil, &MalformedMessageError{Reason: "presence client.permissions must contain strings"}
			}
			permissions = append(permissions, s)
		}
	}

	payload, ok := data["payload"].(map[string]any)
	if !ok {
		return nil, &MalformedMessageError{Reason: "presence payload must be an object"}
	}

	status, ok := payload["status"].(string)
	if !ok {
		return nil, &MalformedMessageError{Reason: "presence payload.status must be a string"}
	}

	switch PresenceStatus(status) {
	case PresenceConnected, PresenceDisconnected:
	default:
		return nil, &MalformedMessageError{Reason: fmt.Sprintf("unknown presence status %q", status)}
	}

	return &PresenceMessage{
		ConnectionID: connectionID,
		Subject:      subject,
		Permissions:  permissions,
		Status:       PresenceStatus(status),
	}, nil
}
