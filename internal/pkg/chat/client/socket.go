package client

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"convohub/internal/infrastructure/realtime"

	"github.com/gorilla/websocket"
)

// Socket binds a websocket connection to a Store: inbound events are decoded
// and reconciled into the store, outbound frames carry sends, read markers
// and typing signals.
type Socket struct {
	store *Store

	mu   sync.Mutex
	conn *websocket.Conn

	done chan struct{}
}

// Dial connects to the realtime endpoint and starts the read loop. The token
// is passed as a query parameter since browser websocket clients cannot set
// headers.
func Dial(ctx context.Context, url, token string, store *Store) (*Socket, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url+"?token="+token, http.Header{})
	if err != nil {
		return nil, err
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	s := &Socket{store: store, conn: conn, done: make(chan struct{})}
	go s.readLoop()
	return s, nil
}

func (s *Socket) readLoop() {
	defer close(s.done)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		var env realtime.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		if env.Type == "error" {
			s.handleError(env.Payload)
			continue
		}
		s.store.handle(env)
	}
}

func (s *Socket) handleError(raw json.RawMessage) {
	var p struct {
		TempID string `json:"tempId"`
	}
	if unmarshalOK(raw, &p) && p.TempID != "" {
		s.store.FailPending(p.TempID)
	}
}

// SendMessage appends an optimistic entry and ships the send frame. The
// returned token identifies the pending entry until the server confirms it.
func (s *Socket) SendMessage(conversationID, content string) (string, error) {
	tempID := s.store.AppendPending(conversationID, content)
	err := s.write("message:send", map[string]string{
		"conversationId": conversationID,
		"content":        content,
		"tempId":         tempID,
	})
	if err != nil {
		s.store.FailPending(tempID)
		return "", err
	}
	return tempID, nil
}

// MarkRead tells the server the caller has caught up on the conversation and
// clears the local counter without waiting for the receipt to echo back.
func (s *Socket) MarkRead(conversationID string) error {
	s.store.SetActive(conversationID)
	return s.write("message:read", map[string]string{"conversationId": conversationID})
}

func (s *Socket) StartTyping(conversationID string) error {
	return s.write(realtime.EventTypingStart, map[string]string{"conversationId": conversationID})
}

func (s *Socket) StopTyping(conversationID string) error {
	return s.write(realtime.EventTypingStop, map[string]string{"conversationId": conversationID})
}

func (s *Socket) write(eventType string, payload any) error {
	raw, err := realtime.Encode(eventType, payload)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return s.conn.WriteMessage(websocket.TextMessage, raw)
}

// Close shuts the connection down and waits for the read loop to drain.
func (s *Socket) Close() error {
	s.mu.Lock()
	err := s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	s.mu.Unlock()
	_ = s.conn.Close()
	<-s.done
	return err
}

func unmarshalOK(raw json.RawMessage, v any) bool {
	return json.Unmarshal(raw, v) == nil
}
