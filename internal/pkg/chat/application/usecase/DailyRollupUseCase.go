package usecase

import (
	"context"
	"fmt"
	"time"

	chat "convohub/internal/pkg/chat/application/domain"
	repository "convohub/internal/pkg/chat/persistence/repository/port"
)

// DailyRollupUseCase aggregates message activity over one window. It runs as
// a batch job against history and never touches live delivery state.
type DailyRollupUseCase struct {
	Repo repository.ChatRepository
}

func NewDailyRollupUseCase(repo repository.ChatRepository) *DailyRollupUseCase {
	return &DailyRollupUseCase{Repo: repo}
}

func (uc *DailyRollupUseCase) Execute(ctx context.Context, from, until time.Time) (chat.DailyStats, error) {
	if !until.After(from) {
		return chat.DailyStats{}, fmt.Errorf("rollup window must not be empty")
	}
	stats, err := uc.Repo.MessageStats(ctx, from, until)
	if err != nil {
		return chat.DailyStats{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	stats.Day = from
	return stats, nil
}
