package usecase_test

import (
	"context"
	"testing"

	chat "convohub/internal/pkg/chat/application/domain"
	"convohub/internal/pkg/chat/application/usecase"
	"convohub/internal/pkg/chat/persistence/repository/adapter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkReadResetsUnreadAndAnnounces(t *testing.T) {
	repo := adapter.NewMemChatRepository()
	b := newFakeBroadcaster()
	ctx := context.Background()

	convID := seedConversation(t, repo, "alice", "bob")
	sendN(t, repo, convID, "alice", 3)

	count, err := repo.UnreadCount(ctx, convID, "bob")
	require.NoError(t, err)
	require.Equal(t, 3, count)

	uc := usecase.NewMarkReadUseCase(repo, b)
	receipt, err := uc.Execute(ctx, usecase.MarkReadInput{ConversationID: convID, UserID: "bob"})
	require.NoError(t, err)
	assert.Equal(t, "bob", receipt.UserID)
	assert.False(t, receipt.ReadAt.IsZero())

	count, err = repo.UnreadCount(ctx, convID, "bob")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	events := b.fanOutEvents(usecase.EventMessageRead)
	require.Len(t, events, 1)
	assert.Equal(t, convID, events[0].ConversationID)
}

func TestMarkReadGatesNonParticipants(t *testing.T) {
	repo := adapter.NewMemChatRepository()
	b := newFakeBroadcaster()

	convID := seedConversation(t, repo, "alice", "bob")

	uc := usecase.NewMarkReadUseCase(repo, b)
	_, err := uc.Execute(context.Background(), usecase.MarkReadInput{ConversationID: convID, UserID: "eve"})
	assert.ErrorIs(t, err, chat.ErrNotParticipant)
	assert.Empty(t, b.fanOuts)
}

func TestUnreadCountRules(t *testing.T) {
	repo := adapter.NewMemChatRepository()
	ctx := context.Background()

	convID := seedConversation(t, repo, "alice", "bob")
	sent := sendN(t, repo, convID, "alice", 2)

	// own messages never count
	count, err := repo.UnreadCount(ctx, convID, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// deleting an unread message removes it from the count
	require.NoError(t, repo.SoftDeleteMessage(ctx, sent[0]))
	count, err = repo.UnreadCount(ctx, convID, "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUnreadOnlyGrowsUntilRead(t *testing.T) {
	repo := adapter.NewMemChatRepository()
	b := newFakeBroadcaster()
	ctx := context.Background()

	convID := seedConversation(t, repo, "alice", "bob")

	prev := 0
	for i := 0; i < 4; i++ {
		sendN(t, repo, convID, "alice", 1)
		count, err := repo.UnreadCount(ctx, convID, "bob")
		require.NoError(t, err)
		assert.Greater(t, count, prev)
		prev = count
	}

	uc := usecase.NewMarkReadUseCase(repo, b)
	_, err := uc.Execute(ctx, usecase.MarkReadInput{ConversationID: convID, UserID: "bob"})
	require.NoError(t, err)

	// messages before the marker stay read even as new ones arrive
	sendN(t, repo, convID, "alice", 1)
	count, err := repo.UnreadCount(ctx, convID, "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUnreadCountsAcrossConversations(t *testing.T) {
	repo := adapter.NewMemChatRepository()
	ctx := context.Background()

	first := seedConversation(t, repo, "alice", "bob")
	second := seedConversation(t, repo, "carol", "bob")
	sendN(t, repo, first, "alice", 2)
	sendN(t, repo, second, "carol", 1)

	uc := usecase.NewUnreadCountsUseCase(repo)
	counts, err := uc.Execute(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 2, counts[first])
	assert.Equal(t, 1, counts[second])
}
