package realtime

import (
	"hash/fnv"
	"sync"
)

const registryShards = 32

// Registry tracks every live connection per user. A user is online iff their
// connection set is non-empty. State is process-local and rebuilt from
// scratch on reconnect; it is never persisted.
//
// The map is sharded by user id so connect/disconnect churn on one identity
// does not contend with another's.
type Registry struct {
	shards [registryShards]registryShard
}

type registryShard struct {
	mu    sync.RWMutex
	users map[string]map[string]*Connection // userID -> connID -> conn
}

func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.shards {
		r.shards[i].users = make(map[string]map[string]*Connection)
	}
	return r
}

func (r *Registry) shard(userID string) *registryShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return &r.shards[h.Sum32()%registryShards]
}

// Register adds the connection to its user's set. It reports true when the
// set transitioned from empty to non-empty (a first-connection event).
func (r *Registry) Register(conn *Connection) (first bool) {
	s := r.shard(conn.UserID)
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.users[conn.UserID]
	if set == nil {
		set = make(map[string]*Connection)
		s.users[conn.UserID] = set
	}
	first = len(set) == 0
	set[conn.ID] = conn
	return first
}

// Unregister removes the connection. It reports true when the user's set
// became empty (a last-disconnection event); the entry itself is deleted to
// bound memory. Unregistering an unknown handle is a no-op.
func (r *Registry) Unregister(conn *Connection) (last bool) {
	s := r.shard(conn.UserID)
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.users[conn.UserID]
	if !ok {
		return false
	}
	if _, ok := set[conn.ID]; !ok {
		return false
	}
	delete(set, conn.ID)
	if len(set) == 0 {
		delete(s.users, conn.UserID)
		return true
	}
	return false
}

// IsOnline reports whether the user currently holds at least one connection.
func (r *Registry) IsOnline(userID string) bool {
	s := r.shard(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users[userID]) > 0
}

// ConnectionsFor returns a snapshot of the user's current connections.
func (r *Registry) ConnectionsFor(userID string) []*Connection {
	s := r.shard(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := s.users[userID]
	if len(set) == 0 {
		return nil
	}
	conns := make([]*Connection, 0, len(set))
	for _, c := range set {
		conns = append(conns, c)
	}
	return conns
}

// SendToUser delivers payload to every connection of the user and returns the
// number of successful deliveries.
func (r *Registry) SendToUser(userID string, payload []byte) int {
	delivered := 0
	for _, c := range r.ConnectionsFor(userID) {
		if err := c.Send(payload); err == nil {
			delivered++
		}
	}
	return delivered
}

// Broadcast delivers payload to every connection process-wide. Used for
// presence transitions, which any conversation partner anywhere may care
// about. Per-connection failures are ignored.
func (r *Registry) Broadcast(payload []byte) int {
	delivered := 0
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.RLock()
		conns := make([]*Connection, 0, len(s.users))
		for _, set := range s.users {
			for _, c := range set {
				conns = append(conns, c)
			}
		}
		s.mu.RUnlock()
		for _, c := range conns {
			if err := c.Send(payload); err == nil {
				delivered++
			}
		}
	}
	return delivered
}
