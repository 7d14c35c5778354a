package realtime

import (
	"sync"
	"time"
)

// Typing tracks which users are currently typing per conversation. Entries
// are ephemeral and lossy: a client that disconnects without sending a stop
// leaves a stale entry, so entries expire after ttl and clients apply their
// own timeout as well. Never persisted.
type Typing struct {
	mu     sync.Mutex
	byConv map[string]map[string]time.Time // conversationID -> userID -> last refresh
	ttl    time.Duration
}

func NewTyping(ttl time.Duration) *Typing {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &Typing{
		byConv: make(map[string]map[string]time.Time),
		ttl:    ttl,
	}
}

// Start records (or refreshes) the user as typing in the conversation.
// It reports true when this is a new entry.
func (t *Typing) Start(conversationID, userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	set := t.byConv[conversationID]
	if set == nil {
		set = make(map[string]time.Time)
		t.byConv[conversationID] = set
	}
	_, existed := set[userID]
	set[userID] = time.Now()
	return !existed
}

// Stop clears the user's typing entry. It reports true when an entry was
// actually removed.
func (t *Typing) Stop(conversationID, userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	set, ok := t.byConv[conversationID]
	if !ok {
		return false
	}
	if _, ok := set[userID]; !ok {
		return false
	}
	delete(set, userID)
	if len(set) == 0 {
		delete(t.byConv, conversationID)
	}
	return true
}

// Active returns the users currently typing in the conversation, excluding
// entries older than the ttl.
func (t *Typing) Active(conversationID string) []string {
	cutoff := time.Now().Add(-t.ttl)

	t.mu.Lock()
	defer t.mu.Unlock()

	set := t.byConv[conversationID]
	if len(set) == 0 {
		return nil
	}
	users := make([]string, 0, len(set))
	for userID, at := range set {
		if at.After(cutoff) {
			users = append(users, userID)
		}
	}
	return users
}

// Sweep drops entries not refreshed within the ttl and returns what was
// cleared, so the caller can fan out typing:stop for them.
func (t *Typing) Sweep(now time.Time) []TypingPayload {
	cutoff := now.Add(-t.ttl)

	t.mu.Lock()
	defer t.mu.Unlock()

	var expired []TypingPayload
	for convID, set := range t.byConv {
		for userID, at := range set {
			if !at.After(cutoff) {
				delete(set, userID)
				expired = append(expired, TypingPayload{ConversationID: convID, UserID: userID})
			}
		}
		if len(set) == 0 {
			delete(t.byConv, convID)
		}
	}
	return expired
}
