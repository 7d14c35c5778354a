package usecase

import (
	"context"
	"errors"
	"fmt"

	chat "convohub/internal/pkg/chat/application/domain"
	repository "convohub/internal/pkg/chat/persistence/repository/port"
)

type DeleteMessageInput struct {
	MessageID string
	UserID    string
}

// MessageDeleted is the tombstone fanned out when a sender retracts a
// message. The row stays behind so ordering and pagination are unaffected.
type MessageDeleted struct {
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
}

// DeleteMessageUseCase soft-deletes a message. Only the original sender may
// delete; deleted content stops appearing in history and unread counts.
type DeleteMessageUseCase struct {
	Repo repository.ChatRepository
	B    Broadcaster
}

func NewDeleteMessageUseCase(repo repository.ChatRepository, b Broadcaster) *DeleteMessageUseCase {
	return &DeleteMessageUseCase{Repo: repo, B: b}
}

func (uc *DeleteMessageUseCase) Execute(ctx context.Context, in DeleteMessageInput) error {
	if in.MessageID == "" || in.UserID == "" {
		return fmt.Errorf("messageId and userId are required")
	}

	msg, err := uc.Repo.GetMessage(ctx, in.MessageID)
	if err != nil {
		if errors.Is(err, chat.ErrNotFound) {
			return chat.ErrNotFound
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if msg.SenderID != in.UserID {
		return chat.ErrNotOwner
	}

	if err := uc.Repo.SoftDeleteMessage(ctx, in.MessageID); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	uc.B.FanOut(msg.ConversationID, EventMessageDeleted, MessageDeleted{
		MessageID:      msg.ID,
		ConversationID: msg.ConversationID,
	})
	return nil
}
