package usecase

import (
	"context"
	"errors"
	"fmt"

	chat "convohub/internal/pkg/chat/application/domain"
	repository "convohub/internal/pkg/chat/persistence/repository/port"
)

type LeaveConversationInput struct {
	ConversationID string
	UserID         string
}

// LeaveConversationUseCase removes the caller from a conversation. When the
// last participant leaves, the conversation and its history are deleted
// outright; otherwise the remaining room is told about the new roster.
type LeaveConversationUseCase struct {
	Repo repository.ChatRepository
	B    Broadcaster
}

func NewLeaveConversationUseCase(repo repository.ChatRepository, b Broadcaster) *LeaveConversationUseCase {
	return &LeaveConversationUseCase{Repo: repo, B: b}
}

func (uc *LeaveConversationUseCase) Execute(ctx context.Context, in LeaveConversationInput) error {
	if in.ConversationID == "" || in.UserID == "" {
		return fmt.Errorf("conversationId and userId are required")
	}

	remaining, err := uc.Repo.RemoveParticipant(ctx, in.ConversationID, in.UserID)
	if err != nil {
		if errors.Is(err, chat.ErrNotParticipant) {
			return chat.ErrNotParticipant
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	uc.B.LeaveUser(in.ConversationID, in.UserID)

	if remaining == 0 {
		if err := uc.Repo.DeleteConversation(ctx, in.ConversationID); err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		return nil
	}

	conv, err := uc.Repo.GetConversation(ctx, in.ConversationID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	uc.B.FanOut(in.ConversationID, EventConversationUpdated, conv)
	return nil
}
