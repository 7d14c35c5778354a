package usecase

import (
	"context"
	"fmt"
	"time"

	chat "convohub/internal/pkg/chat/application/domain"
	repository "convohub/internal/pkg/chat/persistence/repository/port"
)

const (
	DefaultMessagePageSize = 50
	MaxMessagePageSize     = 100
)

// GetMessagesInput carries parameters to fetch one page of a conversation's
// history. Before is the cursor: only messages created strictly earlier are
// returned.
type GetMessagesInput struct {
	ConversationID string
	ViewerID       string
	Before         *time.Time
	Limit          int
}

// GetMessagesUseCase returns non-deleted messages in ascending chronological
// order. The store is queried newest-first from the cursor and the page is
// reversed, so clients can render top-to-bottom and anchor scroll position.
type GetMessagesUseCase struct {
	Repo repository.ChatRepository
}

func NewGetMessagesUseCase(repo repository.ChatRepository) *GetMessagesUseCase {
	return &GetMessagesUseCase{Repo: repo}
}

func (uc *GetMessagesUseCase) Execute(ctx context.Context, in GetMessagesInput) ([]chat.Message, error) {
	if in.ConversationID == "" || in.ViewerID == "" {
		return nil, fmt.Errorf("conversationId and viewerId are required")
	}

	isParticipant, err := uc.Repo.IsParticipant(ctx, in.ConversationID, in.ViewerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !isParticipant {
		return nil, chat.ErrNotParticipant
	}

	limit := in.Limit
	if limit <= 0 {
		limit = DefaultMessagePageSize
	}
	if limit > MaxMessagePageSize {
		limit = MaxMessagePageSize
	}

	msgs, err := uc.Repo.ListMessages(ctx, in.ConversationID, in.Before, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
