package client

import (
	"sort"
	"sync"
	"time"

	"convohub/internal/infrastructure/realtime"
	chat "convohub/internal/pkg/chat/application/domain"

	"github.com/google/uuid"
)

// Store is the client-side view of conversations: confirmed messages merged
// with optimistic pending sends, per-conversation unread counts, peer
// presence and typing state. It mirrors what a connected UI renders and
// reconciles server events into that view.
//
// All methods are safe for concurrent use; the socket reader and the UI
// goroutine share one Store.
type Store struct {
	mu sync.Mutex

	selfID   string
	activeID string // conversation currently on screen, "" when none

	conversations map[string]*chat.Conversation
	messages      map[string][]chat.Message // per conversation, ascending
	pending       map[string]pendingMessage // tempID -> optimistic entry
	unread        map[string]int
	online        map[string]bool
	typing        map[string]map[string]time.Time // conversationID -> userID -> deadline

	typingTTL time.Duration

	// onActiveRead fires when a message lands in the active conversation, so
	// the owner can push a read receipt.
	onActiveRead func(conversationID string)
}

type pendingMessage struct {
	msg      chat.Message
	queuedAt time.Time
}

type StoreOption func(*Store)

// WithActiveReadCallback installs the hook invoked when new messages arrive
// in the conversation currently on screen.
func WithActiveReadCallback(fn func(conversationID string)) StoreOption {
	return func(s *Store) { s.onActiveRead = fn }
}

func WithTypingTTL(ttl time.Duration) StoreOption {
	return func(s *Store) { s.typingTTL = ttl }
}

func NewStore(selfID string, opts ...StoreOption) *Store {
	s := &Store{
		selfID:        selfID,
		conversations: make(map[string]*chat.Conversation),
		messages:      make(map[string][]chat.Message),
		pending:       make(map[string]pendingMessage),
		unread:        make(map[string]int),
		online:        make(map[string]bool),
		typing:        make(map[string]map[string]time.Time),
		typingTTL:     10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetActive marks the conversation currently on screen. Entering a
// conversation clears its unread counter.
func (s *Store) SetActive(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeID = conversationID
	if conversationID != "" {
		s.unread[conversationID] = 0
	}
}

// SeedConversations replaces the conversation list, typically from the
// initial REST fetch after connecting.
func (s *Store) SeedConversations(convs []chat.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range convs {
		conv := convs[i]
		s.conversations[conv.ID] = &conv
		s.unread[conv.ID] = conv.UnreadCount
	}
}

// SeedMessages replaces a conversation's history, typically one fetched page.
// Messages must be ascending by creation time.
func (s *Store) SeedMessages(conversationID string, msgs []chat.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[conversationID] = append([]chat.Message(nil), msgs...)
}

// AppendPending records an optimistic message and returns the correlation
// token to send alongside it. The entry renders immediately and is replaced
// in place when the server's confirmed copy arrives carrying the same token.
func (s *Store) AppendPending(conversationID, content string) string {
	tempID := uuid.NewString()
	now := time.Now().UTC()
	msg := chat.Message{
		ID:             tempID,
		ConversationID: conversationID,
		SenderID:       s.selfID,
		Content:        content,
		CreatedAt:      now,
		TempID:         tempID,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[tempID] = pendingMessage{msg: msg, queuedAt: now}
	s.messages[conversationID] = append(s.messages[conversationID], msg)
	s.bumpLocked(conversationID, now)
	return tempID
}

// FailPending rolls back an optimistic message after the server rejected the
// send. Returns false when the token is unknown (already confirmed or
// expired).
func (s *Store) FailPending(tempID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[tempID]
	if !ok {
		return false
	}
	delete(s.pending, tempID)
	s.removeMessageLocked(p.msg.ConversationID, tempID)
	return true
}

// ExpirePending drops optimistic entries older than maxAge and returns their
// tokens. Call it periodically so a lost ack does not leave ghost messages.
func (s *Store) ExpirePending(maxAge time.Duration) []string {
	cutoff := time.Now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()
	var expired []string
	for tempID, p := range s.pending {
		if p.queuedAt.Before(cutoff) {
			delete(s.pending, tempID)
			s.removeMessageLocked(p.msg.ConversationID, tempID)
			expired = append(expired, tempID)
		}
	}
	return expired
}

// ApplyMessage reconciles a confirmed message from the server.
//
// If the message ID is already present the event is a duplicate and nothing
// changes. If it carries our correlation token, the optimistic entry is
// replaced in place. Older servers may strip the token; in that case a
// pending entry from us with identical content is matched instead. Otherwise
// the message is appended.
func (s *Store) ApplyMessage(msg chat.Message) {
	s.mu.Lock()

	if s.hasMessageLocked(msg.ConversationID, msg.ID) {
		s.mu.Unlock()
		return
	}

	replaced := false
	if msg.SenderID == s.selfID {
		if msg.TempID != "" {
			replaced = s.replacePendingLocked(msg, msg.TempID)
		}
		if !replaced {
			replaced = s.replacePendingByContentLocked(msg)
		}
	}
	if !replaced {
		s.messages[msg.ConversationID] = append(s.messages[msg.ConversationID], msg)
		s.sortMessagesLocked(msg.ConversationID)
	}
	s.bumpLocked(msg.ConversationID, msg.CreatedAt)

	// sender's own typing indicator is implicitly over
	if peers, ok := s.typing[msg.ConversationID]; ok {
		delete(peers, msg.SenderID)
	}

	if msg.SenderID != s.selfID && msg.ConversationID != s.activeID {
		s.unread[msg.ConversationID]++
	}
	active := msg.ConversationID == s.activeID && msg.SenderID != s.selfID
	callback := s.onActiveRead
	s.mu.Unlock()

	if active && callback != nil {
		callback(msg.ConversationID)
	}
}

// ApplyMessageDeleted blanks out a deleted message while keeping its slot so
// ordering is unaffected.
func (s *Store) ApplyMessageDeleted(conversationID, messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.messages[conversationID]
	for i := range msgs {
		if msgs[i].ID == messageID {
			msgs[i].IsDeleted = true
			msgs[i].Content = ""
			return
		}
	}
}

// ApplyRead records a peer's read receipt on the conversation roster.
func (s *Store) ApplyRead(conversationID, userID string, readAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[conversationID]
	if !ok {
		return
	}
	for i := range conv.Participants {
		if conv.Participants[i].UserID == userID {
			at := readAt
			conv.Participants[i].LastReadAt = &at
			return
		}
	}
}

// ApplyPresence records a peer's online state. Duplicate events are no-ops,
// so a flapping connection cannot skew the view.
func (s *Store) ApplyPresence(userID string, isOnline bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.online[userID] = isOnline
}

// ApplyTyping tracks a peer's typing indicator. Start events arm a local
// deadline so a lost stop event still clears the indicator.
func (s *Store) ApplyTyping(conversationID, userID string, start bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	peers, ok := s.typing[conversationID]
	if !ok {
		if !start {
			return
		}
		peers = make(map[string]time.Time)
		s.typing[conversationID] = peers
	}
	if start {
		peers[userID] = time.Now().Add(s.typingTTL)
	} else {
		delete(peers, userID)
	}
}

// ApplyConversation merges a conversation:new or conversation:updated push.
func (s *Store) ApplyConversation(conv chat.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := conv
	s.conversations[conv.ID] = &copied
}

// RemoveConversation drops a conversation and its local state.
func (s *Store) RemoveConversation(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, conversationID)
	delete(s.messages, conversationID)
	delete(s.unread, conversationID)
	delete(s.typing, conversationID)
}

// Messages returns a copy of the conversation's merged view, ascending by
// creation time, pending entries included.
func (s *Store) Messages(conversationID string) []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]chat.Message(nil), s.messages[conversationID]...)
}

// UnreadCount reports the local unread counter for one conversation.
func (s *Store) UnreadCount(conversationID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread[conversationID]
}

// IsOnline reports the last presence state seen for a peer.
func (s *Store) IsOnline(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online[userID]
}

// TypingPeers lists peers with a live typing indicator in the conversation.
func (s *Store) TypingPeers(conversationID string) []string {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	peers := s.typing[conversationID]
	out := make([]string, 0, len(peers))
	for userID, deadline := range peers {
		if deadline.After(now) {
			out = append(out, userID)
		} else {
			delete(peers, userID)
		}
	}
	sort.Strings(out)
	return out
}

// Conversations returns the known conversations ordered by recent activity.
func (s *Store) Conversations() []chat.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]chat.Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		c := *conv
		c.UnreadCount = s.unread[conv.ID]
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// PendingCount reports how many optimistic sends await confirmation.
func (s *Store) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *Store) replacePendingLocked(msg chat.Message, tempID string) bool {
	if _, ok := s.pending[tempID]; !ok {
		return false
	}
	delete(s.pending, tempID)
	msgs := s.messages[msg.ConversationID]
	for i := range msgs {
		if msgs[i].ID == tempID {
			msgs[i] = msg
			s.sortMessagesLocked(msg.ConversationID)
			return true
		}
	}
	return false
}

func (s *Store) replacePendingByContentLocked(msg chat.Message) bool {
	for tempID, p := range s.pending {
		if p.msg.ConversationID == msg.ConversationID && p.msg.Content == msg.Content {
			return s.replacePendingLocked(msg, tempID)
		}
	}
	return false
}

func (s *Store) hasMessageLocked(conversationID, messageID string) bool {
	for _, m := range s.messages[conversationID] {
		if m.ID == messageID {
			return true
		}
	}
	return false
}

func (s *Store) removeMessageLocked(conversationID, messageID string) {
	msgs := s.messages[conversationID]
	for i := range msgs {
		if msgs[i].ID == messageID {
			s.messages[conversationID] = append(msgs[:i], msgs[i+1:]...)
			return
		}
	}
}

func (s *Store) sortMessagesLocked(conversationID string) {
	msgs := s.messages[conversationID]
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
}

func (s *Store) bumpLocked(conversationID string, at time.Time) {
	if conv, ok := s.conversations[conversationID]; ok && at.After(conv.UpdatedAt) {
		conv.UpdatedAt = at
	}
}

// handle dispatches one decoded server event into the store. Shared by the
// socket reader.
func (s *Store) handle(env realtime.Envelope) {
	switch env.Type {
	case realtime.EventMessageNew:
		var msg chat.Message
		if unmarshalOK(env.Payload, &msg) {
			s.ApplyMessage(msg)
		}
	case realtime.EventMessageDeleted:
		var p struct {
			MessageID      string `json:"messageId"`
			ConversationID string `json:"conversationId"`
		}
		if unmarshalOK(env.Payload, &p) {
			s.ApplyMessageDeleted(p.ConversationID, p.MessageID)
		}
	case realtime.EventMessageRead:
		var p struct {
			ConversationID string    `json:"conversationId"`
			UserID         string    `json:"userId"`
			ReadAt         time.Time `json:"readAt"`
		}
		if unmarshalOK(env.Payload, &p) {
			s.ApplyRead(p.ConversationID, p.UserID, p.ReadAt)
		}
	case realtime.EventUserStatus:
		var p realtime.StatusPayload
		if unmarshalOK(env.Payload, &p) {
			s.ApplyPresence(p.UserID, p.IsOnline)
		}
	case realtime.EventTypingStart, realtime.EventTypingStop:
		var p realtime.TypingPayload
		if unmarshalOK(env.Payload, &p) {
			s.ApplyTyping(p.ConversationID, p.UserID, env.Type == realtime.EventTypingStart)
		}
	case realtime.EventConversationNew, realtime.EventConversationUpdated:
		var conv chat.Conversation
		if unmarshalOK(env.Payload, &conv) {
			s.ApplyConversation(conv)
		}
	}
}
