package usecase_test

import (
	"context"
	"sync"

	chat "convohub/internal/pkg/chat/application/domain"
)

// fakeBroadcaster records every realtime interaction for assertions.
type fakeBroadcaster struct {
	mu sync.Mutex

	fanOuts []fanOut
	directs []direct
	joins   []roomChange
	leaves  []roomChange
	online  map[string]bool
}

type fanOut struct {
	ConversationID string
	Event          string
	Payload        any
}

type direct struct {
	UserID  string
	Event   string
	Payload any
}

type roomChange struct {
	ConversationID string
	UserID         string
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{online: make(map[string]bool)}
}

func (f *fakeBroadcaster) FanOut(conversationID string, event string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fanOuts = append(f.fanOuts, fanOut{conversationID, event, payload})
}

func (f *fakeBroadcaster) SendToUser(userID string, event string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.directs = append(f.directs, direct{userID, event, payload})
}

func (f *fakeBroadcaster) JoinUser(conversationID string, userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joins = append(f.joins, roomChange{conversationID, userID})
}

func (f *fakeBroadcaster) LeaveUser(conversationID string, userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leaves = append(f.leaves, roomChange{conversationID, userID})
}

func (f *fakeBroadcaster) IsOnline(userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.online[userID]
}

func (f *fakeBroadcaster) setOnline(userID string, online bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.online[userID] = online
}

func (f *fakeBroadcaster) fanOutEvents(event string) []fanOut {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []fanOut
	for _, fo := range f.fanOuts {
		if fo.Event == event {
			out = append(out, fo)
		}
	}
	return out
}

// fakeNotifier records offline notification requests.
type fakeNotifier struct {
	mu         sync.Mutex
	recipients []string
	err        error
}

func (f *fakeNotifier) NotifyNewMessage(_ context.Context, recipientID string, _ chat.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.recipients = append(f.recipients, recipientID)
	return nil
}

func (f *fakeNotifier) notified() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.recipients...)
}
