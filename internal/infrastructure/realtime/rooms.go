package realtime

import "sync"

// Rooms maps conversations to the live connections that should receive their
// events. Membership is double-indexed (room -> connections and connection ->
// rooms) so a disconnect can clear all memberships without scanning.
//
// Sends hold only a read lock and push into buffered channels, so fan-out to
// one room never blocks traffic on another connection.
type Rooms struct {
	mu     sync.RWMutex
	rooms  map[string]map[string]*Connection // conversationID -> connID -> conn
	joined map[string]map[string]struct{}    // connID -> set of conversationIDs
}

func NewRooms() *Rooms {
	return &Rooms{
		rooms:  make(map[string]map[string]*Connection),
		joined: make(map[string]map[string]struct{}),
	}
}

// Join adds the connection to the conversation room.
func (r *Rooms) Join(conversationID string, conn *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room := r.rooms[conversationID]
	if room == nil {
		room = make(map[string]*Connection)
		r.rooms[conversationID] = room
	}
	room[conn.ID] = conn

	memberships := r.joined[conn.ID]
	if memberships == nil {
		memberships = make(map[string]struct{})
		r.joined[conn.ID] = memberships
	}
	memberships[conversationID] = struct{}{}
}

// JoinAll joins the connection to every listed conversation room.
func (r *Rooms) JoinAll(conversationIDs []string, conn *Connection) {
	for _, id := range conversationIDs {
		r.Join(id, conn)
	}
}

// JoinConnections joins each connection to the conversation room. Used when a
// conversation is created or membership changes: every current device of each
// affected identity must join, not just the one that issued the request.
func (r *Rooms) JoinConnections(conversationID string, conns []*Connection) {
	for _, c := range conns {
		r.Join(conversationID, c)
	}
}

// Leave removes the connection from the conversation room.
func (r *Rooms) Leave(conversationID string, conn *Connection) {
	r.mu.Lock()
	r.leaveLocked(conversationID, conn.ID)
	r.mu.Unlock()
}

// LeaveConnections removes each connection from the conversation room.
func (r *Rooms) LeaveConnections(conversationID string, conns []*Connection) {
	r.mu.Lock()
	for _, c := range conns {
		r.leaveLocked(conversationID, c.ID)
	}
	r.mu.Unlock()
}

// Detach removes the connection from every room it joined. Called on
// disconnect.
func (r *Rooms) Detach(conn *Connection) {
	r.mu.Lock()
	for roomID := range r.joined[conn.ID] {
		r.leaveLocked(roomID, conn.ID)
	}
	delete(r.joined, conn.ID)
	r.mu.Unlock()
}

// Contains reports whether the connection is currently joined to the room.
func (r *Rooms) Contains(conversationID string, conn *Connection) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[conversationID][conn.ID]
	return ok
}

// FanOut delivers payload to every connection in the room, except connections
// belonging to excludeUserID when non-empty. Delivery is best-effort and
// at-least-once per open connection; a failed recipient never affects the
// others. Returns the number of successful deliveries.
func (r *Rooms) FanOut(conversationID string, payload []byte, excludeUserID string) int {
	r.mu.RLock()
	room := r.rooms[conversationID]
	conns := make([]*Connection, 0, len(room))
	for _, c := range room {
		if excludeUserID != "" && c.UserID == excludeUserID {
			continue
		}
		conns = append(conns, c)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, c := range conns {
		if err := c.Send(payload); err == nil {
			delivered++
		}
	}
	return delivered
}

func (r *Rooms) leaveLocked(conversationID string, connID string) {
	room := r.rooms[conversationID]
	if room == nil {
		return
	}
	delete(room, connID)
	if len(room) == 0 {
		delete(r.rooms, conversationID)
	}
	if memberships, ok := r.joined[connID]; ok {
		delete(memberships, conversationID)
		if len(memberships) == 0 {
			delete(r.joined, connID)
		}
	}
}
