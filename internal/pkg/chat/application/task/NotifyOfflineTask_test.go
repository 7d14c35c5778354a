package task_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	qport "convohub/internal/infrastructure/queue/port"
	"convohub/internal/infrastructure/realtime"
	chat "convohub/internal/pkg/chat/application/domain"
	"convohub/internal/pkg/chat/application/task"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeQueueClient struct {
	tasks []qport.Task
	opts  []qport.EnqueueOption
}

func (f *fakeQueueClient) Enqueue(_ context.Context, t qport.Task, opts ...qport.EnqueueOption) (string, error) {
	f.tasks = append(f.tasks, t)
	if len(opts) > 0 {
		f.opts = append(f.opts, opts[0])
	} else {
		f.opts = append(f.opts, qport.EnqueueOption{})
	}
	return "task-id", nil
}

func (f *fakeQueueClient) Close() error { return nil }

type fakeQueueServer struct {
	handlers map[string]qport.Handler
}

func newFakeQueueServer() *fakeQueueServer {
	return &fakeQueueServer{handlers: make(map[string]qport.Handler)}
}

func (f *fakeQueueServer) Register(taskType string, h qport.Handler) { f.handlers[taskType] = h }
func (f *fakeQueueServer) Run(context.Context) error                { return nil }
func (f *fakeQueueServer) Stop(context.Context) error               { return nil }

func TestOfflineNotifierEnqueuesPayload(t *testing.T) {
	client := &fakeQueueClient{}
	notifier := task.NewOfflineNotifier(client, "chat")

	msg := chat.Message{
		ID:             "msg-1",
		ConversationID: "conv-1",
		SenderID:       "alice",
		Content:        "hello bob",
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(t, notifier.NotifyNewMessage(context.Background(), "bob", msg))

	require.Len(t, client.tasks, 1)
	assert.Equal(t, task.NotifyOfflineTaskType, client.tasks[0].Type)
	assert.Equal(t, "chat", client.opts[0].Queue)

	var p task.NotifyOfflinePayload
	require.NoError(t, json.Unmarshal(client.tasks[0].Payload, &p))
	assert.Equal(t, "bob", p.RecipientID)
	assert.Equal(t, "msg-1", p.MessageID)
	assert.Equal(t, "hello bob", p.Preview)
}

func TestOfflineNotifierTruncatesPreview(t *testing.T) {
	client := &fakeQueueClient{}
	notifier := task.NewOfflineNotifier(client, "chat")

	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	msg := chat.Message{ID: "msg-1", ConversationID: "conv-1", SenderID: "alice", Content: string(long)}
	require.NoError(t, notifier.NotifyNewMessage(context.Background(), "bob", msg))

	var p task.NotifyOfflinePayload
	require.NoError(t, json.Unmarshal(client.tasks[0].Payload, &p))
	assert.Len(t, p.Preview, 140)
}

func TestNotifyOfflineDeliversToReconnectedRecipient(t *testing.T) {
	srv := newFakeQueueServer()
	hub := realtime.NewHub(nil, 10*time.Second, zap.NewNop().Sugar())
	task.RegisterNotifyOfflineTask(srv, hub, zap.NewNop().Sugar())

	handler := srv.handlers[task.NotifyOfflineTaskType]
	require.NotNil(t, handler)

	// bob reconnected while the task sat in the queue
	conn := realtime.NewConnection("bob", nil)
	hub.Registry.Register(conn)

	payload, err := json.Marshal(task.NotifyOfflinePayload{
		RecipientID:    "bob",
		MessageID:      "msg-1",
		ConversationID: "conv-1",
		SenderID:       "alice",
		Preview:        "hello",
	})
	require.NoError(t, err)

	require.NoError(t, handler(context.Background(), qport.Task{Type: task.NotifyOfflineTaskType, Payload: payload}))
	assert.Equal(t, 1, conn.Buffered(), "a live socket gets the notification instead of the external channel")
}

func TestNotifyOfflineHandlerOfflineRecipient(t *testing.T) {
	srv := newFakeQueueServer()
	hub := realtime.NewHub(nil, 10*time.Second, zap.NewNop().Sugar())
	task.RegisterNotifyOfflineTask(srv, hub, zap.NewNop().Sugar())

	payload, err := json.Marshal(task.NotifyOfflinePayload{RecipientID: "ghost", MessageID: "msg-1"})
	require.NoError(t, err)

	// still offline: the handler hands off and succeeds, no retry loop
	handler := srv.handlers[task.NotifyOfflineTaskType]
	assert.NoError(t, handler(context.Background(), qport.Task{Type: task.NotifyOfflineTaskType, Payload: payload}))
}

func TestNotifyOfflineHandlerMalformedPayload(t *testing.T) {
	srv := newFakeQueueServer()
	hub := realtime.NewHub(nil, 10*time.Second, zap.NewNop().Sugar())
	task.RegisterNotifyOfflineTask(srv, hub, zap.NewNop().Sugar())

	handler := srv.handlers[task.NotifyOfflineTaskType]
	err := handler(context.Background(), qport.Task{Type: task.NotifyOfflineTaskType, Payload: []byte("{")})
	assert.Error(t, err)
}
