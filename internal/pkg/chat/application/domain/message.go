package chat

import (
	"strings"
	"time"
)

// Message is an immutable log entry in a conversation. Content and CreatedAt
// never change after creation; deletion only sets the soft IsDeleted flag so
// ordering and ids stay stable for in-flight delivery.
type Message struct {
	ID             string    `db:"id" json:"id"`
	ConversationID string    `db:"conversation_id" json:"conversationId"`
	SenderID       string    `db:"sender_id" json:"senderId"`
	Content        string    `db:"content" json:"content"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	IsDeleted      bool      `db:"is_deleted" json:"isDeleted"`

	// TempID echoes the client correlation token from the send request so the
	// sender can splice its optimistic entry exactly. Never persisted.
	TempID string `json:"tempId,omitempty"`
}

// NewMessage validates and normalizes a message ready to persist.
func NewMessage(conversationID, senderID, content string) (*Message, error) {
	if conversationID == "" || senderID == "" {
		return nil, ErrNotFound
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}
	return &Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// CountsAsUnreadFor applies the unread formula for one message: not deleted,
// sent by someone else, and created strictly after the viewer's lastReadAt
// (or any time when the viewer never read).
func (m *Message) CountsAsUnreadFor(viewerID string, lastReadAt *time.Time) bool {
	if m.IsDeleted || m.SenderID == viewerID {
		return false
	}
	return lastReadAt == nil || m.CreatedAt.After(*lastReadAt)
}
