package usecase

import (
	"context"
	"fmt"

	repository "convohub/internal/pkg/chat/persistence/repository/port"
)

// UnreadCountsUseCase reports per-conversation unread totals for one viewer.
// Conversations with nothing unread are omitted from the map.
type UnreadCountsUseCase struct {
	Repo repository.ChatRepository
}

func NewUnreadCountsUseCase(repo repository.ChatRepository) *UnreadCountsUseCase {
	return &UnreadCountsUseCase{Repo: repo}
}

func (uc *UnreadCountsUseCase) Execute(ctx context.Context, viewerID string) (map[string]int, error) {
	if viewerID == "" {
		return nil, fmt.Errorf("viewerId is required")
	}
	counts, err := uc.Repo.UnreadCounts(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if counts == nil {
		counts = map[string]int{}
	}
	return counts, nil
}
