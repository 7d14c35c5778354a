package usecase

import (
	"context"
	"fmt"

	chat "convohub/internal/pkg/chat/application/domain"
	repository "convohub/internal/pkg/chat/persistence/repository/port"
)

// ListConversationsUseCase returns the viewer's conversations, most recently
// active first, each hydrated with participants, latest message and the
// viewer's unread count.
type ListConversationsUseCase struct {
	Repo repository.ChatRepository
}

func NewListConversationsUseCase(repo repository.ChatRepository) *ListConversationsUseCase {
	return &ListConversationsUseCase{Repo: repo}
}

func (uc *ListConversationsUseCase) Execute(ctx context.Context, viewerID string) ([]chat.Conversation, error) {
	if viewerID == "" {
		return nil, fmt.Errorf("viewerId is required")
	}

	convs, err := uc.Repo.ListUserConversations(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if len(convs) == 0 {
		return convs, nil
	}

	counts, err := uc.Repo.UnreadCounts(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	for i := range convs {
		convs[i].UnreadCount = counts[convs[i].ID]
	}
	return convs, nil
}
