package usecase_test

import (
	"context"
	"errors"
	"testing"

	chat "convohub/internal/pkg/chat/application/domain"
	"convohub/internal/pkg/chat/application/usecase"
	"convohub/internal/pkg/chat/persistence/repository/adapter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func seedConversation(t *testing.T, repo *adapter.MemChatRepository, participants ...string) string {
	t.Helper()
	conv, err := repo.CreateConversation(context.Background(), nil, participants)
	require.NoError(t, err)
	return conv.ID
}

func TestSendMessagePersistsBeforeFanOut(t *testing.T) {
	repo := adapter.NewMemChatRepository()
	b := newFakeBroadcaster()
	notifier := &fakeNotifier{}
	uc := usecase.NewSendMessageUseCase(repo, b, notifier, zap.NewNop().Sugar())
	ctx := context.Background()

	convID := seedConversation(t, repo, "alice", "bob")

	msg, err := uc.Execute(ctx, usecase.SendMessageInput{
		ConversationID: convID,
		SenderID:       "alice",
		Content:        "hello",
		TempID:         "tmp-1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "tmp-1", msg.TempID, "the correlation token must echo on the confirmed copy")

	// fanned out exactly once, already durable
	events := b.fanOutEvents(usecase.EventMessageNew)
	require.Len(t, events, 1)
	assert.Equal(t, convID, events[0].ConversationID)

	stored, err := repo.GetMessage(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", stored.Content)
	assert.Empty(t, stored.TempID, "the token is transport metadata, never persisted")
}

func TestSendMessageRejectsNonParticipant(t *testing.T) {
	repo := adapter.NewMemChatRepository()
	b := newFakeBroadcaster()
	uc := usecase.NewSendMessageUseCase(repo, b, nil, zap.NewNop().Sugar())

	convID := seedConversation(t, repo, "alice", "bob")

	_, err := uc.Execute(context.Background(), usecase.SendMessageInput{
		ConversationID: convID,
		SenderID:       "eve",
		Content:        "let me in",
	})
	assert.ErrorIs(t, err, chat.ErrNotParticipant)
	assert.Empty(t, b.fanOuts, "a rejected send must not leak into the room")
}

func TestSendMessageRejectsEmptyContent(t *testing.T) {
	repo := adapter.NewMemChatRepository()
	uc := usecase.NewSendMessageUseCase(repo, newFakeBroadcaster(), nil, zap.NewNop().Sugar())

	convID := seedConversation(t, repo, "alice", "bob")

	_, err := uc.Execute(context.Background(), usecase.SendMessageInput{
		ConversationID: convID,
		SenderID:       "alice",
		Content:        "   ",
	})
	assert.ErrorIs(t, err, chat.ErrEmptyMessage)
}

func TestSendMessageNotifiesOfflineRecipientsOnly(t *testing.T) {
	repo := adapter.NewMemChatRepository()
	b := newFakeBroadcaster()
	notifier := &fakeNotifier{}
	uc := usecase.NewSendMessageUseCase(repo, b, notifier, zap.NewNop().Sugar())

	convID := seedConversation(t, repo, "alice", "bob", "carol")
	b.setOnline("alice", true)
	b.setOnline("bob", true)
	// carol is offline

	_, err := uc.Execute(context.Background(), usecase.SendMessageInput{
		ConversationID: convID,
		SenderID:       "alice",
		Content:        "hi all",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"carol"}, notifier.notified())
}

func TestSendMessageSucceedsWhenNotifierFails(t *testing.T) {
	repo := adapter.NewMemChatRepository()
	b := newFakeBroadcaster()
	notifier := &fakeNotifier{err: errors.New("queue down")}
	uc := usecase.NewSendMessageUseCase(repo, b, notifier, zap.NewNop().Sugar())

	convID := seedConversation(t, repo, "alice", "bob")

	_, err := uc.Execute(context.Background(), usecase.SendMessageInput{
		ConversationID: convID,
		SenderID:       "alice",
		Content:        "still delivered",
	})
	assert.NoError(t, err)
	assert.Len(t, b.fanOutEvents(usecase.EventMessageNew), 1)
}

func TestSendMessageBumpsConversationRecency(t *testing.T) {
	repo := adapter.NewMemChatRepository()
	uc := usecase.NewSendMessageUseCase(repo, newFakeBroadcaster(), nil, zap.NewNop().Sugar())
	ctx := context.Background()

	first := seedConversation(t, repo, "alice", "bob")
	second := seedConversation(t, repo, "alice", "carol")

	_, err := uc.Execute(ctx, usecase.SendMessageInput{
		ConversationID: first,
		SenderID:       "alice",
		Content:        "bump",
	})
	require.NoError(t, err)

	convs, err := repo.ListUserConversations(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, first, convs[0].ID, "the conversation with fresh activity must sort first")
	assert.Equal(t, second, convs[1].ID)
}
