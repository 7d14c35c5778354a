package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	idport "convohub/internal/infrastructure/identity/port"
	"convohub/internal/infrastructure/realtime"
	chat "convohub/internal/pkg/chat/application/domain"
	"convohub/internal/pkg/chat/application/usecase"
	repository "convohub/internal/pkg/chat/persistence/repository/port"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// SocketOptions tunes the per-connection websocket behavior.
type SocketOptions struct {
	ReadLimit  int64
	PingPeriod time.Duration
	WriteWait  time.Duration
	SendBuffer int
}

// ChatSocketController owns the realtime endpoint: it authenticates the
// upgrade, tracks presence, joins the user's rooms, and dispatches inbound
// frames until the client disconnects.
type ChatSocketController struct {
	resolver        idport.Resolver
	hub             *realtime.Hub
	repo            repository.ChatRepository
	sendUC          *usecase.SendMessageUseCase
	markReadUC      *usecase.MarkReadUseCase
	opts            SocketOptions
	inflightTimeout time.Duration
}

func NewChatSocketController(
	resolver idport.Resolver,
	hub *realtime.Hub,
	repo repository.ChatRepository,
	sendUC *usecase.SendMessageUseCase,
	markReadUC *usecase.MarkReadUseCase,
	opts SocketOptions,
) *ChatSocketController {
	return &ChatSocketController{
		resolver:        resolver,
		hub:             hub,
		repo:            repo,
		sendUC:          sendUC,
		markReadUC:      markReadUC,
		opts:            opts,
		inflightTimeout: 5 * time.Second,
	}
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins for now; plug a proper checker when deployed behind a gateway.
		return true
	},
}

type sendFrame struct {
	ConversationID string `json:"conversationId"`
	Content        string `json:"content"`
	TempID         string `json:"tempId,omitempty"`
}

type readFrame struct {
	ConversationID string `json:"conversationId"`
}

type typingFrame struct {
	ConversationID string `json:"conversationId"`
}

type errorFrame struct {
	Code   string `json:"code"`
	Error  string `json:"error"`
	TempID string `json:"tempId,omitempty"`
}

type ackFrame struct {
	UserID string `json:"userId"`
}

// Handle upgrades HTTP connections to websocket and processes frames until the client disconnects.
// Credential failures terminate before the upgrade; the client must reconnect
// with a valid token.
func (ctl *ChatSocketController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
				token = strings.TrimPrefix(header, "Bearer ")
			}
		}
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing credentials"})
			return
		}
		identity, err := ctl.resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		userID := identity.UserID

		ws, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the response; just return.
			return
		}

		conn := realtime.NewConnection(userID, ws,
			realtime.WithWriteWait(ctl.opts.WriteWait),
			realtime.WithPingPeriod(ctl.opts.PingPeriod),
			realtime.WithSendBuffer(ctl.opts.SendBuffer),
		)
		conn.Start()

		ctx := c.Request.Context()
		ctl.hub.Presence.ConnectionOpened(ctx, conn)
		defer func() {
			ctl.hub.Rooms.Detach(conn)
			ctl.hub.Presence.ConnectionClosed(context.Background(), conn)
			conn.Close(websocket.CloseNormalClosure, "session closed")
		}()

		// Join every conversation the user belongs to so fan-out reaches this
		// connection without a per-room subscribe step.
		ctl.joinRooms(ctx, conn)

		readLimit := ctl.opts.ReadLimit
		if readLimit <= 0 {
			readLimit = 1 << 20
		}
		ws.SetReadLimit(readLimit)
		readTimeout := 2 * ctl.opts.PingPeriod
		if readTimeout <= 0 {
			readTimeout = 60 * time.Second
		}
		_ = ws.SetReadDeadline(time.Now().Add(readTimeout))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(readTimeout))
		})

		if payload, err := realtime.Encode("connected", ackFrame{UserID: userID}); err == nil {
			_ = conn.Send(payload)
		}

		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}

			var frame realtime.Envelope
			if err := json.Unmarshal(data, &frame); err != nil {
				ctl.replyError(conn, "bad_request", "invalid frame")
				continue
			}

			switch frame.Type {
			case "message:send":
				ctl.handleSend(ctx, conn, frame.Payload)
			case "message:read":
				ctl.handleRead(ctx, conn, frame.Payload)
			case realtime.EventTypingStart:
				ctl.handleTyping(conn, frame.Payload, true)
			case realtime.EventTypingStop:
				ctl.handleTyping(conn, frame.Payload, false)
			default:
				ctl.replyError(conn, "unsupported_type", "unknown frame type")
			}
		}
	}
}

func (ctl *ChatSocketController) joinRooms(ctx context.Context, conn *realtime.Connection) {
	ctx, cancel := context.WithTimeout(ctx, ctl.inflightTimeout)
	defer cancel()
	ids, err := ctl.repo.ListUserConversationIDs(ctx, conn.UserID)
	if err != nil {
		ctl.replyError(conn, "internal_error", "failed to load conversations")
		return
	}
	ctl.hub.Rooms.JoinAll(ids, conn)
}

func (ctl *ChatSocketController) handleSend(ctx context.Context, conn *realtime.Connection, raw json.RawMessage) {
	var f sendFrame
	if err := json.Unmarshal(raw, &f); err != nil || f.ConversationID == "" {
		ctl.replyError(conn, "bad_request", "conversationId and content are required")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, ctl.inflightTimeout)
	defer cancel()

	_, err := ctl.sendUC.Execute(ctx, usecase.SendMessageInput{
		ConversationID: f.ConversationID,
		SenderID:       conn.UserID,
		Content:        f.Content,
		TempID:         f.TempID,
	})
	if err != nil {
		// carry the correlation token back so the client can roll back the
		// matching optimistic entry
		ctl.replyUseCaseError(conn, err, f.TempID)
	}
}

func (ctl *ChatSocketController) handleRead(ctx context.Context, conn *realtime.Connection, raw json.RawMessage) {
	var f readFrame
	if err := json.Unmarshal(raw, &f); err != nil || f.ConversationID == "" {
		ctl.replyError(conn, "bad_request", "conversationId is required")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, ctl.inflightTimeout)
	defer cancel()

	if _, err := ctl.markReadUC.Execute(ctx, usecase.MarkReadInput{
		ConversationID: f.ConversationID,
		UserID:         conn.UserID,
	}); err != nil {
		ctl.replyUseCaseError(conn, err, "")
	}
}

// handleTyping relays typing signals to the rest of the room. Membership is
// checked against the live room only; typing never touches the database.
func (ctl *ChatSocketController) handleTyping(conn *realtime.Connection, raw json.RawMessage, start bool) {
	var f typingFrame
	if err := json.Unmarshal(raw, &f); err != nil || f.ConversationID == "" {
		ctl.replyError(conn, "bad_request", "conversationId is required")
		return
	}
	if !ctl.hub.Rooms.Contains(f.ConversationID, conn) {
		ctl.replyError(conn, "forbidden", "not joined to this conversation")
		return
	}

	payload := realtime.TypingPayload{ConversationID: f.ConversationID, UserID: conn.UserID}
	if start {
		ctl.hub.Typing.Start(f.ConversationID, conn.UserID)
		ctl.hub.FanOutExcept(f.ConversationID, realtime.EventTypingStart, payload, conn.UserID)
		return
	}
	if ctl.hub.Typing.Stop(f.ConversationID, conn.UserID) {
		ctl.hub.FanOutExcept(f.ConversationID, realtime.EventTypingStop, payload, conn.UserID)
	}
}

func (ctl *ChatSocketController) replyUseCaseError(conn *realtime.Connection, err error, tempID string) {
	frame := errorFrame{Code: "bad_request", Error: err.Error(), TempID: tempID}
	switch {
	case errors.Is(err, usecase.ErrPersistence):
		frame.Code = "internal_error"
		frame.Error = "unexpected persistence error"
	case errors.Is(err, chat.ErrNotParticipant):
		frame.Code = "forbidden"
		frame.Error = "not a participant in this conversation"
	}
	if payload, err := realtime.Encode("error", frame); err == nil {
		_ = conn.Send(payload)
	}
}

func (ctl *ChatSocketController) replyError(conn *realtime.Connection, code string, message string) {
	if payload, err := realtime.Encode("error", errorFrame{Code: code, Error: message}); err == nil {
		_ = conn.Send(payload)
	}
}
