package usecase

import (
	"context"
	"fmt"

	chat "convohub/internal/pkg/chat/application/domain"
	repository "convohub/internal/pkg/chat/persistence/repository/port"
)

type AddParticipantsInput struct {
	ConversationID string
	RequesterID    string
	UserIDs        []string
}

// AddParticipantsUseCase adds users to an existing conversation. Only current
// participants may invite; users already present are skipped. Newcomers get a
// conversation:new push and are joined to the live room, everyone else sees a
// conversation:updated with the fresh roster.
type AddParticipantsUseCase struct {
	Repo repository.ChatRepository
	B    Broadcaster
}

func NewAddParticipantsUseCase(repo repository.ChatRepository, b Broadcaster) *AddParticipantsUseCase {
	return &AddParticipantsUseCase{Repo: repo, B: b}
}

func (uc *AddParticipantsUseCase) Execute(ctx context.Context, in AddParticipantsInput) (*chat.Conversation, error) {
	if in.ConversationID == "" || in.RequesterID == "" {
		return nil, fmt.Errorf("conversationId and requesterId are required")
	}
	if len(in.UserIDs) == 0 {
		return nil, fmt.Errorf("at least one user to add is required")
	}

	isParticipant, err := uc.Repo.IsParticipant(ctx, in.ConversationID, in.RequesterID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !isParticipant {
		return nil, chat.ErrNotParticipant
	}

	added, err := uc.Repo.AddParticipants(ctx, in.ConversationID, in.UserIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	conv, err := uc.Repo.GetConversation(ctx, in.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	for _, userID := range added {
		uc.B.JoinUser(in.ConversationID, userID)
		uc.B.SendToUser(userID, EventConversationNew, conv)
	}
	if len(added) > 0 {
		uc.B.FanOut(in.ConversationID, EventConversationUpdated, conv)
	}
	return conv, nil
}
