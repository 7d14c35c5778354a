package repository

import (
	"context"
	"time"

	chat "convohub/internal/pkg/chat/application/domain"
)

// ChatRepository defines persistence operations for the chat domain. The
// durable store is the single source of truth; the realtime layer's in-memory
// indices are rebuilt from these queries on every connect.
//
// Find* methods return (nil, nil) when nothing matches; Get* methods return
// chat.ErrNotFound.
type ChatRepository interface {
	// conversations
	CreateConversation(ctx context.Context, name *string, participantIDs []string) (*chat.Conversation, error)
	FindDirectConversation(ctx context.Context, userA, userB string) (*chat.Conversation, error)
	GetConversation(ctx context.Context, id string) (*chat.Conversation, error)
	ListUserConversations(ctx context.Context, userID string) ([]chat.Conversation, error)
	ListUserConversationIDs(ctx context.Context, userID string) ([]string, error)
	TouchConversation(ctx context.Context, id string, at time.Time) error
	DeleteConversation(ctx context.Context, id string) error

	// participants
	IsParticipant(ctx context.Context, conversationID, userID string) (bool, error)
	ListParticipants(ctx context.Context, conversationID string) ([]chat.Participant, error)
	AddParticipants(ctx context.Context, conversationID string, userIDs []string) (added []string, err error)
	RemoveParticipant(ctx context.Context, conversationID, userID string) (remaining int, err error)
	SetLastReadAt(ctx context.Context, conversationID, userID string, at time.Time) error

	// messages
	SaveMessage(ctx context.Context, m chat.Message) (*chat.Message, error)
	GetMessage(ctx context.Context, id string) (*chat.Message, error)
	ListMessages(ctx context.Context, conversationID string, before *time.Time, limit int) ([]chat.Message, error)
	SoftDeleteMessage(ctx context.Context, id string) error

	// read bookkeeping
	UnreadCount(ctx context.Context, conversationID, userID string) (int, error)
	UnreadCounts(ctx context.Context, userID string) (map[string]int, error)

	// batch aggregation
	MessageStats(ctx context.Context, from, until time.Time) (chat.DailyStats, error)
}
