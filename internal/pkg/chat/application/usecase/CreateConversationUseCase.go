package usecase

import (
	"context"
	"fmt"

	chat "convohub/internal/pkg/chat/application/domain"
	repository "convohub/internal/pkg/chat/persistence/repository/port"
)

// CreateConversationInput carries the data to open a new conversation. The
// creator is always included in the participant set.
type CreateConversationInput struct {
	CreatorID      string
	ParticipantIDs []string
	Name           *string
}

// CreateConversationUseCase creates a conversation (or returns the existing
// direct conversation for the same pair), joins every participant's current
// connections to the new room, and announces it to them.
type CreateConversationUseCase struct {
	Repo repository.ChatRepository
	B    Broadcaster
}

func NewCreateConversationUseCase(repo repository.ChatRepository, b Broadcaster) *CreateConversationUseCase {
	return &CreateConversationUseCase{Repo: repo, B: b}
}

func (uc *CreateConversationUseCase) Execute(ctx context.Context, in CreateConversationInput) (*chat.Conversation, error) {
	if in.CreatorID == "" {
		return nil, fmt.Errorf("creator id is required")
	}

	ids := normalizeParticipants(in.CreatorID, in.ParticipantIDs)
	if len(ids) < 2 {
		return nil, fmt.Errorf("a conversation needs at least two participants")
	}

	// A direct chat between the same pair is unique: create is idempotent.
	if len(ids) == 2 {
		existing, err := uc.Repo.FindDirectConversation(ctx, ids[0], ids[1])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		if existing != nil {
			return existing, nil
		}
	}

	conv, err := uc.Repo.CreateConversation(ctx, in.Name, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	// Every device of every participant joins the room now; offline users are
	// covered by join-on-connect when they next appear.
	for _, userID := range ids {
		uc.B.JoinUser(conv.ID, userID)
		uc.B.SendToUser(userID, EventConversationNew, conv)
	}

	return conv, nil
}

// normalizeParticipants puts the creator first and drops duplicates and
// empties, preserving the remaining order.
func normalizeParticipants(creatorID string, participantIDs []string) []string {
	seen := map[string]struct{}{creatorID: {}}
	ids := []string{creatorID}
	for _, id := range participantIDs {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
