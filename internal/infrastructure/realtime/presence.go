package realtime

import (
	"context"
	"time"

	"go.uber.org/zap"

	cacheport "convohub/internal/infrastructure/cache/port"
)

const presenceMirrorTTL = 24 * time.Hour

// Presence derives online/offline per user from registry occupancy: a user
// goes Online on their first connection and Offline on their last disconnect,
// with no intermediate states and no debounce. Transitions broadcast a
// user:status event to every connection process-wide and are mirrored into
// the cache so out-of-process consumers can read presence:<userID>.
type Presence struct {
	registry *Registry
	cache    cacheport.Cache // optional
	log      *zap.SugaredLogger
}

func NewPresence(registry *Registry, cache cacheport.Cache, log *zap.SugaredLogger) *Presence {
	return &Presence{registry: registry, cache: cache, log: log}
}

// ConnectionOpened registers the connection and, when it is the user's first,
// announces the Online transition.
func (p *Presence) ConnectionOpened(ctx context.Context, conn *Connection) {
	if first := p.registry.Register(conn); first {
		p.announce(ctx, conn.UserID, true)
	}
}

// ConnectionClosed unregisters the connection and, when it was the user's
// last, announces the Offline transition. Exactly one offline broadcast is
// emitted no matter how many connections existed.
func (p *Presence) ConnectionClosed(ctx context.Context, conn *Connection) {
	if last := p.registry.Unregister(conn); last {
		p.announce(ctx, conn.UserID, false)
	}
}

func (p *Presence) announce(ctx context.Context, userID string, online bool) {
	payload, err := Encode(EventUserStatus, StatusPayload{UserID: userID, IsOnline: online})
	if err != nil {
		p.log.Errorw("encode presence event", "error", err)
		return
	}
	p.registry.Broadcast(payload)
	p.mirror(ctx, userID, online)
}

// mirror writes the status into the cache, best effort. A failed mirror never
// affects the broadcast.
func (p *Presence) mirror(ctx context.Context, userID string, online bool) {
	if p.cache == nil {
		return
	}
	status := "offline"
	if online {
		status = "online"
	}
	if err := p.cache.Set(ctx, "presence:"+userID, status, presenceMirrorTTL); err != nil {
		p.log.Warnw("presence mirror failed", "user", userID, "error", err)
	}
}
