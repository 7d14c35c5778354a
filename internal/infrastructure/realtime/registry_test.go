package realtime

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryFirstAndLastTransitions(t *testing.T) {
	r := NewRegistry()

	a1 := NewConnection("alice", nil)
	a2 := NewConnection("alice", nil)

	require.True(t, r.Register(a1), "first connection must report the online transition")
	require.False(t, r.Register(a2), "second device must not report a transition")
	assert.True(t, r.IsOnline("alice"))

	require.False(t, r.Unregister(a1), "one device remains, no offline transition")
	assert.True(t, r.IsOnline("alice"))

	require.True(t, r.Unregister(a2), "last disconnect must report the offline transition")
	assert.False(t, r.IsOnline("alice"))
}

func TestRegistryUnregisterUnknownIsNoOp(t *testing.T) {
	r := NewRegistry()

	ghost := NewConnection("bob", nil)
	assert.False(t, r.Unregister(ghost))

	// registering after the bogus unregister still reports first
	assert.True(t, r.Register(NewConnection("bob", nil)))
}

func TestRegistrySendToUserReachesEveryDevice(t *testing.T) {
	r := NewRegistry()

	c1 := NewConnection("carol", nil)
	c2 := NewConnection("carol", nil)
	r.Register(c1)
	r.Register(c2)
	r.Register(NewConnection("dave", nil))

	delivered := r.SendToUser("carol", []byte("hi"))
	assert.Equal(t, 2, delivered)
	assert.Len(t, c1.send, 1)
	assert.Len(t, c2.send, 1)
}

func TestRegistryBroadcastReachesAllUsers(t *testing.T) {
	r := NewRegistry()

	conns := []*Connection{
		NewConnection("alice", nil),
		NewConnection("bob", nil),
		NewConnection("bob", nil),
	}
	for _, c := range conns {
		r.Register(c)
	}

	delivered := r.Broadcast([]byte("status"))
	assert.Equal(t, 3, delivered)
	for _, c := range conns {
		assert.Len(t, c.send, 1)
	}
}

func TestRegistryConcurrentChurn(t *testing.T) {
	r := NewRegistry()

	const users = 16
	const devices = 8

	var wg sync.WaitGroup
	for u := 0; u < users; u++ {
		userID := string(rune('a' + u))
		for d := 0; d < devices; d++ {
			wg.Add(1)
			go func(userID string) {
				defer wg.Done()
				c := NewConnection(userID, nil)
				r.Register(c)
				r.Unregister(c)
			}(userID)
		}
	}
	wg.Wait()

	for u := 0; u < users; u++ {
		assert.False(t, r.IsOnline(string(rune('a'+u))))
	}
}
