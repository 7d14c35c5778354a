package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	idport "convohub/internal/infrastructure/identity/port"
	"convohub/internal/infrastructure/realtime"
	chat "convohub/internal/pkg/chat/application/domain"
	"convohub/internal/pkg/chat/persistence/repository/adapter"
	httpHandler "convohub/internal/pkg/chat/presentation/http"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type tokenResolver struct{}

func (tokenResolver) Resolve(_ context.Context, token string) (idport.Identity, error) {
	if token == "" {
		return idport.Identity{}, idport.ErrIdentityInvalid
	}
	return idport.Identity{UserID: token}, nil
}

type apiFixture struct {
	repo   *adapter.MemChatRepository
	engine *gin.Engine
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := adapter.NewMemChatRepository()
	hub := realtime.NewHub(nil, 10*time.Second, zap.NewNop().Sugar())

	r := gin.New()
	httpHandler.RegisterRoutes(r.Group("/api/v1"), httpHandler.Deps{
		Repo:     repo,
		Hub:      hub,
		Resolver: tokenResolver{},
		Log:      zap.NewNop().Sugar(),
	})
	return &apiFixture{repo: repo, engine: r}
}

func (f *apiFixture) do(t *testing.T, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+user)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func TestAPIRequiresCredentials(t *testing.T) {
	f := newAPIFixture(t)
	w := f.do(t, http.MethodGet, "/api/v1/conversations", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAPICreateAndListConversations(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/conversations", "alice", gin.H{
		"participantIds": []string{"bob"},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var conv chat.Conversation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conv))
	assert.NotEmpty(t, conv.ID)
	assert.True(t, conv.HasParticipant("alice"))
	assert.True(t, conv.HasParticipant("bob"))

	w = f.do(t, http.MethodGet, "/api/v1/conversations", "bob", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Conversations []chat.Conversation `json:"conversations"`
		Count         int                 `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)
}

func TestAPISendAndFetchMessages(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()

	conv, err := f.repo.CreateConversation(ctx, nil, []string{"alice", "bob"})
	require.NoError(t, err)

	w := f.do(t, http.MethodPost, "/api/v1/conversations/"+conv.ID+"/messages", "alice", gin.H{
		"content": "hello",
		"tempId":  "tmp-1",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var msg chat.Message
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msg))
	assert.Equal(t, "tmp-1", msg.TempID)
	assert.NotEmpty(t, msg.ID)

	w = f.do(t, http.MethodGet, "/api/v1/conversations/"+conv.ID+"/messages", "bob", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Messages []chat.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Messages, 1)
	assert.Equal(t, "hello", page.Messages[0].Content)

	// outsiders are rejected
	w = f.do(t, http.MethodGet, "/api/v1/conversations/"+conv.ID+"/messages", "eve", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAPISendRejectsOutsider(t *testing.T) {
	f := newAPIFixture(t)

	conv, err := f.repo.CreateConversation(context.Background(), nil, []string{"alice", "bob"})
	require.NoError(t, err)

	w := f.do(t, http.MethodPost, "/api/v1/conversations/"+conv.ID+"/messages", "eve", gin.H{
		"content": "sneaky",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAPIUnreadCounts(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()

	conv, err := f.repo.CreateConversation(ctx, nil, []string{"alice", "bob"})
	require.NoError(t, err)
	msg, err := chat.NewMessage(conv.ID, "alice", "unread one")
	require.NoError(t, err)
	_, err = f.repo.SaveMessage(ctx, *msg)
	require.NoError(t, err)

	w := f.do(t, http.MethodGet, "/api/v1/conversations/unread", "bob", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var out struct {
		Unread map[string]int `json:"unread"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, 1, out.Unread[conv.ID])
}

func TestAPIDeleteMessage(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()

	conv, err := f.repo.CreateConversation(ctx, nil, []string{"alice", "bob"})
	require.NoError(t, err)
	draft, err := chat.NewMessage(conv.ID, "alice", "to be removed")
	require.NoError(t, err)
	msg, err := f.repo.SaveMessage(ctx, *draft)
	require.NoError(t, err)

	// only the sender may delete
	w := f.do(t, http.MethodDelete, "/api/v1/messages/"+msg.ID, "bob", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodDelete, "/api/v1/messages/"+msg.ID, "alice", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	stored, err := f.repo.GetMessage(ctx, msg.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsDeleted)
}

func TestAPIParticipantLifecycle(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()

	conv, err := f.repo.CreateConversation(ctx, nil, []string{"alice", "bob"})
	require.NoError(t, err)

	w := f.do(t, http.MethodPost, "/api/v1/conversations/"+conv.ID+"/participants", "alice", gin.H{
		"userIds": []string{"carol"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	var updated chat.Conversation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Len(t, updated.Participants, 3)

	w = f.do(t, http.MethodDelete, "/api/v1/conversations/"+conv.ID+"/participants/me", "carol", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	after, err := f.repo.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.False(t, after.HasParticipant("carol"))
}
