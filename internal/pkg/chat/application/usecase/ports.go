package usecase

import (
	"context"

	chat "convohub/internal/pkg/chat/application/domain"
)

// Events the conversation service pushes through the Broadcaster.
const (
	EventMessageNew          = "message:new"
	EventMessageDeleted      = "message:deleted"
	EventMessageRead         = "message:read"
	EventConversationNew     = "conversation:new"
	EventConversationUpdated = "conversation:updated"
)

// Broadcaster is the realtime surface the conversation service drives. It
// reads connection state (IsOnline) and requests room joins and fan-out; it
// never owns the registry. Implemented by realtime.Hub.
type Broadcaster interface {
	FanOut(conversationID string, event string, payload any)
	SendToUser(userID string, event string, payload any)
	JoinUser(conversationID string, userID string)
	LeaveUser(conversationID string, userID string)
	IsOnline(userID string) bool
}

// Notifier hands a new-message notification for an offline recipient to the
// external notification channel. Best effort: a failed dispatch must never
// fail the originating send.
type Notifier interface {
	NotifyNewMessage(ctx context.Context, recipientID string, msg chat.Message) error
}
