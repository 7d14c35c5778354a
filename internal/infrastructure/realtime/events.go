package realtime

import "encoding/json"

// Server→client event names carried on the realtime channel.
const (
	EventMessageNew          = "message:new"
	EventMessageDeleted      = "message:deleted"
	EventMessageRead         = "message:read"
	EventConversationNew     = "conversation:new"
	EventConversationUpdated = "conversation:updated"
	EventTypingStart         = "typing:start"
	EventTypingStop          = "typing:stop"
	EventUserStatus          = "user:status"
	EventNotificationNew     = "notification:new"
)

// Envelope is the wire frame for every realtime event, inbound and outbound.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encode marshals an event frame for delivery.
func Encode(eventType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: eventType, Payload: raw})
}

// StatusPayload is the body of a user:status event.
type StatusPayload struct {
	UserID   string `json:"userId"`
	IsOnline bool   `json:"isOnline"`
}

// TypingPayload is the body of typing:start / typing:stop events.
type TypingPayload struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
}
