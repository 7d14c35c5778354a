package task

import (
	"context"
	"encoding/json"
	"time"

	qport "convohub/internal/infrastructure/queue/port"
	"convohub/internal/infrastructure/realtime"
	chat "convohub/internal/pkg/chat/application/domain"
	"convohub/internal/pkg/chat/application/usecase"

	"go.uber.org/zap"
)

// NotifyOfflineTaskType is the queue task name for delivering a new-message
// notification to a recipient with no live connection.
const NotifyOfflineTaskType = "chat:notify_offline"

// NotifyOfflinePayload is the JSON payload transported via the queue.
// Kept decoupled from domain types to avoid tight coupling with JSON tags.
type NotifyOfflinePayload struct {
	RecipientID    string    `json:"recipientId"`
	MessageID      string    `json:"messageId"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	Preview        string    `json:"preview"`
	SentAt         time.Time `json:"sentAt"`
}

const previewLimit = 140

// OfflineNotifier enqueues notification deliveries instead of performing them
// inline, so a slow notification channel never holds up message sends.
type OfflineNotifier struct {
	client qport.Client
	queue  string
}

func NewOfflineNotifier(client qport.Client, queue string) *OfflineNotifier {
	return &OfflineNotifier{client: client, queue: queue}
}

var _ usecase.Notifier = (*OfflineNotifier)(nil)

func (n *OfflineNotifier) NotifyNewMessage(ctx context.Context, recipientID string, msg chat.Message) error {
	preview := msg.Content
	if len(preview) > previewLimit {
		preview = preview[:previewLimit]
	}
	payload, err := json.Marshal(NotifyOfflinePayload{
		RecipientID:    recipientID,
		MessageID:      msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Preview:        preview,
		SentAt:         msg.CreatedAt,
	})
	if err != nil {
		return err
	}
	_, err = n.client.Enqueue(ctx, qport.Task{Type: NotifyOfflineTaskType, Payload: payload}, qport.EnqueueOption{
		Queue:    n.queue,
		MaxRetry: 3,
	})
	return err
}

// RegisterNotifyOfflineTask binds the delivery handler to the provided server.
// If the recipient reconnected while the task sat in the queue, the
// notification is delivered over the live socket instead; otherwise it is
// logged as handed off, the durable inbox being outside this service.
func RegisterNotifyOfflineTask(srv qport.Server, hub *realtime.Hub, log *zap.SugaredLogger) {
	srv.Register(NotifyOfflineTaskType, func(ctx context.Context, t qport.Task) error {
		var p NotifyOfflinePayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			// malformed payload: do not retry indefinitely
			return err
		}

		if hub.IsOnline(p.RecipientID) {
			hub.SendToUser(p.RecipientID, realtime.EventNotificationNew, p)
			return nil
		}

		log.Infow("offline notification dispatched",
			"recipientId", p.RecipientID,
			"conversationId", p.ConversationID,
			"messageId", p.MessageID,
		)
		return nil
	})
}
