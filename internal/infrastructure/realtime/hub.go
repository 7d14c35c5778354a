package realtime

import (
	"context"
	"time"

	"go.uber.org/zap"

	cacheport "convohub/internal/infrastructure/cache/port"
)

// Hub bundles the connection registry, room router, presence and typing
// trackers behind one coordination surface. The conversation service only
// reads registry occupancy and asks for fan-out/joins; it never mutates the
// in-memory structures directly.
type Hub struct {
	Registry *Registry
	Rooms    *Rooms
	Presence *Presence
	Typing   *Typing

	log *zap.SugaredLogger
}

func NewHub(cache cacheport.Cache, typingTTL time.Duration, log *zap.SugaredLogger) *Hub {
	registry := NewRegistry()
	return &Hub{
		Registry: registry,
		Rooms:    NewRooms(),
		Presence: NewPresence(registry, cache, log),
		Typing:   NewTyping(typingTTL),
		log:      log,
	}
}

// FanOut encodes an event and delivers it to every connection in the room.
func (h *Hub) FanOut(conversationID string, event string, payload any) {
	raw, err := Encode(event, payload)
	if err != nil {
		h.log.Errorw("encode fan-out event", "event", event, "error", err)
		return
	}
	h.Rooms.FanOut(conversationID, raw, "")
}

// FanOutExcept is FanOut minus the given user's own connections (typing
// events never echo back to the sender).
func (h *Hub) FanOutExcept(conversationID string, event string, payload any, excludeUserID string) {
	raw, err := Encode(event, payload)
	if err != nil {
		h.log.Errorw("encode fan-out event", "event", event, "error", err)
		return
	}
	h.Rooms.FanOut(conversationID, raw, excludeUserID)
}

// SendToUser delivers an event to every live connection of one user.
func (h *Hub) SendToUser(userID string, event string, payload any) {
	raw, err := Encode(event, payload)
	if err != nil {
		h.log.Errorw("encode user event", "event", event, "error", err)
		return
	}
	h.Registry.SendToUser(userID, raw)
}

// JoinUser joins all of the user's current connections to the room. A user
// with no live connections joins nothing now; the join-on-connect rule covers
// them at their next connect.
func (h *Hub) JoinUser(conversationID string, userID string) {
	h.Rooms.JoinConnections(conversationID, h.Registry.ConnectionsFor(userID))
}

// LeaveUser removes all of the user's current connections from the room.
func (h *Hub) LeaveUser(conversationID string, userID string) {
	h.Rooms.LeaveConnections(conversationID, h.Registry.ConnectionsFor(userID))
}

// IsOnline reports registry occupancy for the user.
func (h *Hub) IsOnline(userID string) bool {
	return h.Registry.IsOnline(userID)
}

// RunTypingSweeper clears stale typing entries periodically, fanning out the
// stops the missing clients never sent. Blocks until ctx is done.
func (h *Hub) RunTypingSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for _, p := range h.Typing.Sweep(now) {
				h.FanOutExcept(p.ConversationID, EventTypingStop, p, p.UserID)
			}
		}
	}
}
