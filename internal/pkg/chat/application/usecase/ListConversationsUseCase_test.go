package usecase_test

import (
	"context"
	"testing"

	"convohub/internal/pkg/chat/application/usecase"
	"convohub/internal/pkg/chat/persistence/repository/adapter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestListConversationsHydratedAndOrdered(t *testing.T) {
	repo := adapter.NewMemChatRepository()
	uc := usecase.NewListConversationsUseCase(repo)
	ctx := context.Background()

	older := seedConversation(t, repo, "alice", "bob")
	newer := seedConversation(t, repo, "alice", "carol")
	sendN(t, repo, older, "bob", 2)

	convs, err := uc.Execute(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, convs, 2)

	// fresh activity sorts first
	assert.Equal(t, older, convs[0].ID)
	assert.Equal(t, newer, convs[1].ID)

	require.NotNil(t, convs[0].LastMessage)
	assert.Equal(t, "bob", convs[0].LastMessage.SenderID)
	assert.Equal(t, 2, convs[0].UnreadCount)
	assert.Nil(t, convs[1].LastMessage)
	assert.Equal(t, 0, convs[1].UnreadCount)
}

func TestListConversationsHidesDeletedLastMessage(t *testing.T) {
	repo := adapter.NewMemChatRepository()
	uc := usecase.NewListConversationsUseCase(repo)
	ctx := context.Background()

	convID := seedConversation(t, repo, "alice", "bob")
	sent := sendN(t, repo, convID, "bob", 2)
	require.NoError(t, repo.SoftDeleteMessage(ctx, sent[1]))

	convs, err := uc.Execute(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, convs, 1)
	require.NotNil(t, convs[0].LastMessage)
	assert.Equal(t, sent[0], convs[0].LastMessage.ID, "the latest surviving message is the preview")
}

func TestListConversationsEmpty(t *testing.T) {
	repo := adapter.NewMemChatRepository()
	uc := usecase.NewListConversationsUseCase(repo)

	convs, err := uc.Execute(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, convs)
}

// Scenario: alice messages bob while he is away, bob comes back, catches up,
// replies. Mirrors a realistic round trip across the service.
func TestConversationRoundTrip(t *testing.T) {
	repo := adapter.NewMemChatRepository()
	b := newFakeBroadcaster()
	notifier := &fakeNotifier{}
	log := zap.NewNop().Sugar()
	ctx := context.Background()

	createUC := usecase.NewCreateConversationUseCase(repo, b)
	sendUC := usecase.NewSendMessageUseCase(repo, b, notifier, log)
	listUC := usecase.NewListConversationsUseCase(repo)
	readUC := usecase.NewMarkReadUseCase(repo, b)
	getUC := usecase.NewGetMessagesUseCase(repo)

	b.setOnline("alice", true)

	conv, err := createUC.Execute(ctx, usecase.CreateConversationInput{
		CreatorID:      "alice",
		ParticipantIDs: []string{"bob"},
	})
	require.NoError(t, err)

	_, err = sendUC.Execute(ctx, usecase.SendMessageInput{
		ConversationID: conv.ID, SenderID: "alice", Content: "are you there?",
	})
	require.NoError(t, err)
	_, err = sendUC.Execute(ctx, usecase.SendMessageInput{
		ConversationID: conv.ID, SenderID: "alice", Content: "ping",
	})
	require.NoError(t, err)

	// bob was offline for both sends
	assert.Equal(t, []string{"bob", "bob"}, notifier.notified())

	// bob reconnects and lists: one conversation, two unread
	b.setOnline("bob", true)
	convs, err := listUC.Execute(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, 2, convs[0].UnreadCount)

	// catches up
	_, err = readUC.Execute(ctx, usecase.MarkReadInput{ConversationID: conv.ID, UserID: "bob"})
	require.NoError(t, err)
	count, err := repo.UnreadCount(ctx, conv.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// replies; alice is online so no notification for her
	_, err = sendUC.Execute(ctx, usecase.SendMessageInput{
		ConversationID: conv.ID, SenderID: "bob", Content: "here now",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "bob"}, notifier.notified())

	// full history in order
	msgs, err := getUC.Execute(ctx, usecase.GetMessagesInput{ConversationID: conv.ID, ViewerID: "alice"})
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "are you there?", msgs[0].Content)
	assert.Equal(t, "here now", msgs[2].Content)
}
