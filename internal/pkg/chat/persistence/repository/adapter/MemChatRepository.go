package adapter

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	chat "convohub/internal/pkg/chat/application/domain"
	repository "convohub/internal/pkg/chat/persistence/repository/port"
)

// MemChatRepository implements the ChatRepository port entirely in memory.
// It backs tests and local development; semantics mirror PgChatRepository.
type MemChatRepository struct {
	mu            sync.Mutex
	conversations map[string]*memConversation
	messages      map[string][]chat.Message // conversationID -> append order = chronological
	byMessageID   map[string]string         // messageID -> conversationID
}

type memConversation struct {
	conv         chat.Conversation
	participants map[string]*chat.Participant
}

func NewMemChatRepository() *MemChatRepository {
	return &MemChatRepository{
		conversations: make(map[string]*memConversation),
		messages:      make(map[string][]chat.Message),
		byMessageID:   make(map[string]string),
	}
}

var _ repository.ChatRepository = (*MemChatRepository)(nil)

func (r *MemChatRepository) CreateConversation(_ context.Context, name *string, participantIDs []string) (*chat.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	mc := &memConversation{
		conv: chat.Conversation{
			ID:        uuid.NewString(),
			Name:      name,
			CreatedAt: now,
			UpdatedAt: now,
		},
		participants: make(map[string]*chat.Participant),
	}
	for _, userID := range participantIDs {
		mc.participants[userID] = &chat.Participant{
			ConversationID: mc.conv.ID,
			UserID:         userID,
			JoinedAt:       now,
		}
	}
	r.conversations[mc.conv.ID] = mc

	conv := r.hydrateLocked(mc)
	return &conv, nil
}

func (r *MemChatRepository) FindDirectConversation(_ context.Context, userA, userB string) (*chat.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, mc := range r.conversations {
		if len(mc.participants) != 2 {
			continue
		}
		if _, okA := mc.participants[userA]; !okA {
			continue
		}
		if _, okB := mc.participants[userB]; !okB {
			continue
		}
		conv := r.hydrateLocked(mc)
		return &conv, nil
	}
	return nil, nil
}

func (r *MemChatRepository) GetConversation(_ context.Context, id string) (*chat.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	mc, ok := r.conversations[id]
	if !ok {
		return nil, chat.ErrNotFound
	}
	conv := r.hydrateLocked(mc)
	return &conv, nil
}

func (r *MemChatRepository) ListUserConversations(_ context.Context, userID string) ([]chat.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []chat.Conversation
	for _, mc := range r.conversations {
		if _, ok := mc.participants[userID]; ok {
			out = append(out, r.hydrateLocked(mc))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (r *MemChatRepository) ListUserConversationIDs(ctx context.Context, userID string) ([]string, error) {
	convs, err := r.ListUserConversations(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(convs))
	for _, c := range convs {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

func (r *MemChatRepository) TouchConversation(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	mc, ok := r.conversations[id]
	if !ok {
		return chat.ErrNotFound
	}
	mc.conv.UpdatedAt = at
	return nil
}

func (r *MemChatRepository) DeleteConversation(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.messages[id] {
		delete(r.byMessageID, m.ID)
	}
	delete(r.messages, id)
	delete(r.conversations, id)
	return nil
}

func (r *MemChatRepository) IsParticipant(_ context.Context, conversationID, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	mc, ok := r.conversations[conversationID]
	if !ok {
		return false, nil
	}
	_, ok = mc.participants[userID]
	return ok, nil
}

func (r *MemChatRepository) ListParticipants(_ context.Context, conversationID string) ([]chat.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	mc, ok := r.conversations[conversationID]
	if !ok {
		return nil, chat.ErrNotFound
	}
	return participantsLocked(mc), nil
}

func (r *MemChatRepository) AddParticipants(_ context.Context, conversationID string, userIDs []string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	mc, ok := r.conversations[conversationID]
	if !ok {
		return nil, chat.ErrNotFound
	}

	now := time.Now().UTC()
	var added []string
	for _, userID := range userIDs {
		if _, exists := mc.participants[userID]; exists {
			continue
		}
		mc.participants[userID] = &chat.Participant{
			ConversationID: conversationID,
			UserID:         userID,
			JoinedAt:       now,
		}
		added = append(added, userID)
	}
	return added, nil
}

func (r *MemChatRepository) RemoveParticipant(_ context.Context, conversationID, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	mc, ok := r.conversations[conversationID]
	if !ok {
		return 0, chat.ErrNotFound
	}
	if _, ok := mc.participants[userID]; !ok {
		return 0, chat.ErrNotParticipant
	}
	delete(mc.participants, userID)
	return len(mc.participants), nil
}

func (r *MemChatRepository) SetLastReadAt(_ context.Context, conversationID, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	mc, ok := r.conversations[conversationID]
	if !ok {
		return chat.ErrNotFound
	}
	p, ok := mc.participants[userID]
	if !ok {
		return chat.ErrNotParticipant
	}
	t := at
	p.LastReadAt = &t
	return nil
}

func (r *MemChatRepository) SaveMessage(_ context.Context, m chat.Message) (*chat.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conversations[m.ConversationID]; !ok {
		return nil, chat.ErrNotFound
	}
	m.ID = uuid.NewString()
	m.TempID = ""
	r.messages[m.ConversationID] = append(r.messages[m.ConversationID], m)
	r.byMessageID[m.ID] = m.ConversationID
	return &m, nil
}

func (r *MemChatRepository) GetMessage(_ context.Context, id string) (*chat.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	convID, ok := r.byMessageID[id]
	if !ok {
		return nil, chat.ErrNotFound
	}
	for _, m := range r.messages[convID] {
		if m.ID == id {
			return &m, nil
		}
	}
	return nil, chat.ErrNotFound
}

func (r *MemChatRepository) ListMessages(_ context.Context, conversationID string, before *time.Time, limit int) ([]chat.Message, error) {
	if limit <= 0 {
		limit = 50
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := r.messages[conversationID]
	var out []chat.Message
	for i := len(stored) - 1; i >= 0 && len(out) < limit; i-- {
		m := stored[i]
		if m.IsDeleted {
			continue
		}
		if before != nil && !m.CreatedAt.Before(*before) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *MemChatRepository) SoftDeleteMessage(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	convID, ok := r.byMessageID[id]
	if !ok {
		return chat.ErrNotFound
	}
	msgs := r.messages[convID]
	for i := range msgs {
		if msgs[i].ID == id {
			msgs[i].IsDeleted = true
			return nil
		}
	}
	return chat.ErrNotFound
}

func (r *MemChatRepository) UnreadCount(_ context.Context, conversationID, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unreadLocked(conversationID, userID), nil
}

func (r *MemChatRepository) UnreadCounts(_ context.Context, userID string) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[string]int)
	for id, mc := range r.conversations {
		if _, ok := mc.participants[userID]; !ok {
			continue
		}
		if n := r.unreadLocked(id, userID); n > 0 {
			counts[id] = n
		}
	}
	return counts, nil
}

func (r *MemChatRepository) MessageStats(_ context.Context, from, until time.Time) (chat.DailyStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := chat.DailyStats{Day: from}
	convs := make(map[string]struct{})
	senders := make(map[string]struct{})
	for convID, msgs := range r.messages {
		for _, m := range msgs {
			if m.IsDeleted || m.CreatedAt.Before(from) || !m.CreatedAt.Before(until) {
				continue
			}
			stats.Messages++
			convs[convID] = struct{}{}
			senders[m.SenderID] = struct{}{}
		}
	}
	stats.ActiveConversations = len(convs)
	stats.ActiveSenders = len(senders)
	return stats, nil
}

func (r *MemChatRepository) unreadLocked(conversationID, userID string) int {
	mc, ok := r.conversations[conversationID]
	if !ok {
		return 0
	}
	p, ok := mc.participants[userID]
	if !ok {
		return 0
	}
	count := 0
	for _, m := range r.messages[conversationID] {
		if m.CountsAsUnreadFor(userID, p.LastReadAt) {
			count++
		}
	}
	return count
}

func (r *MemChatRepository) hydrateLocked(mc *memConversation) chat.Conversation {
	conv := mc.conv
	conv.Participants = participantsLocked(mc)
	stored := r.messages[conv.ID]
	for i := len(stored) - 1; i >= 0; i-- {
		if !stored[i].IsDeleted {
			m := stored[i]
			conv.LastMessage = &m
			break
		}
	}
	return conv
}

func participantsLocked(mc *memConversation) []chat.Participant {
	out := make([]chat.Participant, 0, len(mc.participants))
	for _, p := range mc.participants {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].UserID < out[j].UserID
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out
}
