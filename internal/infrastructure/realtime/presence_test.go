package realtime

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func decodeStatus(t *testing.T, raw []byte) StatusPayload {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	require.Equal(t, EventUserStatus, env.Type)
	var p StatusPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	return p
}

func TestPresenceAnnouncesFirstAndLastOnly(t *testing.T) {
	registry := NewRegistry()
	presence := NewPresence(registry, nil, zap.NewNop().Sugar())
	ctx := context.Background()

	// observer watches the broadcasts without affecting alice's transitions
	observer := NewConnection("observer", nil)
	registry.Register(observer)

	phone := NewConnection("alice", nil)
	laptop := NewConnection("alice", nil)

	presence.ConnectionOpened(ctx, phone)
	require.Len(t, observer.send, 1, "first connection must broadcast online")
	status := decodeStatus(t, <-observer.send)
	assert.Equal(t, "alice", status.UserID)
	assert.True(t, status.IsOnline)

	presence.ConnectionOpened(ctx, laptop)
	assert.Len(t, observer.send, 0, "second device must not broadcast")

	presence.ConnectionClosed(ctx, phone)
	assert.Len(t, observer.send, 0, "closing one of two devices must not broadcast")

	presence.ConnectionClosed(ctx, laptop)
	require.Len(t, observer.send, 1, "last disconnect must broadcast offline exactly once")
	status = decodeStatus(t, <-observer.send)
	assert.Equal(t, "alice", status.UserID)
	assert.False(t, status.IsOnline)
}

func TestPresenceReconnectCycle(t *testing.T) {
	registry := NewRegistry()
	presence := NewPresence(registry, nil, zap.NewNop().Sugar())
	ctx := context.Background()

	observer := NewConnection("observer", nil)
	registry.Register(observer)

	// flap: connect, drop, connect again
	c1 := NewConnection("bob", nil)
	presence.ConnectionOpened(ctx, c1)
	presence.ConnectionClosed(ctx, c1)
	c2 := NewConnection("bob", nil)
	presence.ConnectionOpened(ctx, c2)

	require.Len(t, observer.send, 3)
	assert.True(t, decodeStatus(t, <-observer.send).IsOnline)
	assert.False(t, decodeStatus(t, <-observer.send).IsOnline)
	assert.True(t, decodeStatus(t, <-observer.send).IsOnline)
	assert.True(t, registry.IsOnline("bob"))
}
