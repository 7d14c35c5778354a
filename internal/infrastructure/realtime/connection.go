package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	defaultWriteWait  = 10 * time.Second
	defaultPingPeriod = 30 * time.Second
	defaultSendBuffer = 128
)

// Connection wraps a websocket and coordinates outbound writes via a buffered
// channel. A user may hold many simultaneous connections (tabs, devices);
// each gets its own opaque Connection handle. Safe for concurrent use.
type Connection struct {
	ID     string
	UserID string

	ws         *websocket.Conn
	send       chan []byte
	once       sync.Once
	close      chan struct{}
	writeWait  time.Duration
	pingPeriod time.Duration
}

// ConnectionOption tweaks timing and buffering of a Connection.
type ConnectionOption func(*Connection)

func WithWriteWait(d time.Duration) ConnectionOption {
	return func(c *Connection) {
		if d > 0 {
			c.writeWait = d
		}
	}
}

func WithPingPeriod(d time.Duration) ConnectionOption {
	return func(c *Connection) {
		if d > 0 {
			c.pingPeriod = d
		}
	}
}

func WithSendBuffer(n int) ConnectionOption {
	return func(c *Connection) {
		if n > 0 {
			c.send = make(chan []byte, n)
		}
	}
}

// NewConnection constructs a Connection for the given user. ws may be nil in
// tests; Send then only fills the buffer and Start must not be called.
func NewConnection(userID string, ws *websocket.Conn, opts ...ConnectionOption) *Connection {
	c := &Connection{
		ID:         uuid.NewString(),
		UserID:     userID,
		ws:         ws,
		send:       make(chan []byte, defaultSendBuffer),
		close:      make(chan struct{}),
		writeWait:  defaultWriteWait,
		pingPeriod: defaultPingPeriod,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start launches the write loop. It must be called exactly once per connection.
func (c *Connection) Start() {
	go c.writeLoop()
}

// Send enqueues payload for delivery. If the client is slow and the buffer is
// full, the connection is closed to keep backpressure bounded.
func (c *Connection) Send(payload []byte) error {
	select {
	case <-c.close:
		return errors.New("connection closed")
	case c.send <- payload:
		return nil
	default:
		c.Close(websocket.CloseGoingAway, "send buffer full")
		return errors.New("connection buffer exceeded")
	}
}

// Buffered reports how many outbound frames are queued but not yet written.
func (c *Connection) Buffered() int {
	return len(c.send)
}

// Close terminates the connection and stops the write loop.
func (c *Connection) Close(code int, reason string) {
	c.once.Do(func() {
		// c.send stays open: a concurrent Send must never hit a closed
		// channel. The write loop exits via c.close instead.
		close(c.close)
		if c.ws != nil {
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeWait))
			_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(c.writeWait))
			_ = c.ws.Close()
		}
	})
}

func (c *Connection) writeLoop() {
	ticker := time.NewTicker(c.pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.close:
			return
		case msg := <-c.send:
			if err := c.writeMessage(msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.writePing(); err != nil {
				return
			}
		}
	}
}

func (c *Connection) writeMessage(payload []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

func (c *Connection) writePing() error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.PingMessage, nil)
}
