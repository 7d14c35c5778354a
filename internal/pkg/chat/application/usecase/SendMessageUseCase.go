package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	chat "convohub/internal/pkg/chat/application/domain"
	repository "convohub/internal/pkg/chat/persistence/repository/port"
)

// SendMessageInput carries the data needed to send a new message. TempID is
// the client's optional correlation token; it is echoed on the confirmed
// message so the sender can splice its optimistic entry exactly.
type SendMessageInput struct {
	ConversationID string
	SenderID       string
	Content        string
	TempID         string
}

// SendMessageUseCase persists a message, advances the conversation's activity
// timestamp, fans the confirmed message out to the room, and queues a
// notification for every participant with no live connection. The durable
// write happens-before the fan-out; notification failures never fail the send.
type SendMessageUseCase struct {
	Repo     repository.ChatRepository
	B        Broadcaster
	Notifier Notifier
	Log      *zap.SugaredLogger
}

func NewSendMessageUseCase(repo repository.ChatRepository, b Broadcaster, n Notifier, log *zap.SugaredLogger) *SendMessageUseCase {
	return &SendMessageUseCase{Repo: repo, B: b, Notifier: n, Log: log}
}

func (uc *SendMessageUseCase) Execute(ctx context.Context, in SendMessageInput) (*chat.Message, error) {
	if in.ConversationID == "" || in.SenderID == "" {
		return nil, fmt.Errorf("conversationId and senderId are required")
	}

	isParticipant, err := uc.Repo.IsParticipant(ctx, in.ConversationID, in.SenderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !isParticipant {
		return nil, chat.ErrNotParticipant
	}

	draft, err := chat.NewMessage(in.ConversationID, in.SenderID, in.Content)
	if err != nil {
		return nil, err
	}

	msg, err := uc.Repo.SaveMessage(ctx, *draft)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if err := uc.Repo.TouchConversation(ctx, in.ConversationID, msg.CreatedAt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	msg.TempID = in.TempID
	uc.B.FanOut(in.ConversationID, EventMessageNew, msg)

	uc.notifyOffline(ctx, *msg)
	return msg, nil
}

// notifyOffline queues a notification for every other participant who has no
// live connection right now. Online participants got the room fan-out.
func (uc *SendMessageUseCase) notifyOffline(ctx context.Context, msg chat.Message) {
	if uc.Notifier == nil {
		return
	}
	participants, err := uc.Repo.ListParticipants(ctx, msg.ConversationID)
	if err != nil {
		uc.Log.Warnw("list participants for notification", "conversation", msg.ConversationID, "error", err)
		return
	}
	for _, p := range participants {
		if p.UserID == msg.SenderID || uc.B.IsOnline(p.UserID) {
			continue
		}
		nctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := uc.Notifier.NotifyNewMessage(nctx, p.UserID, msg); err != nil {
			uc.Log.Warnw("queue offline notification", "recipient", p.UserID, "error", err)
		}
		cancel()
	}
}
