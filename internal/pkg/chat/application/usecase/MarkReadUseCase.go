package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	chat "convohub/internal/pkg/chat/application/domain"
	repository "convohub/internal/pkg/chat/persistence/repository/port"
)

type MarkReadInput struct {
	ConversationID string
	UserID         string
}

// ReadReceipt is fanned out to the conversation room when a participant
// catches up on its history.
type ReadReceipt struct {
	ConversationID string    `json:"conversationId"`
	UserID         string    `json:"userId"`
	ReadAt         time.Time `json:"readAt"`
}

// MarkReadUseCase advances the caller's read marker to now and announces the
// receipt to everyone in the room. Moving the marker resets the caller's
// unread count for the conversation to zero.
type MarkReadUseCase struct {
	Repo repository.ChatRepository
	B    Broadcaster
}

func NewMarkReadUseCase(repo repository.ChatRepository, b Broadcaster) *MarkReadUseCase {
	return &MarkReadUseCase{Repo: repo, B: b}
}

func (uc *MarkReadUseCase) Execute(ctx context.Context, in MarkReadInput) (ReadReceipt, error) {
	if in.ConversationID == "" || in.UserID == "" {
		return ReadReceipt{}, fmt.Errorf("conversationId and userId are required")
	}

	readAt := time.Now().UTC()
	err := uc.Repo.SetLastReadAt(ctx, in.ConversationID, in.UserID, readAt)
	if err != nil {
		if errors.Is(err, chat.ErrNotParticipant) {
			return ReadReceipt{}, chat.ErrNotParticipant
		}
		return ReadReceipt{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	receipt := ReadReceipt{ConversationID: in.ConversationID, UserID: in.UserID, ReadAt: readAt}
	uc.B.FanOut(in.ConversationID, EventMessageRead, receipt)
	return receipt, nil
}
