package http

import (
	idport "convohub/internal/infrastructure/identity/port"
	"convohub/internal/infrastructure/realtime"
	"convohub/internal/pkg/chat/application/usecase"
	repository "convohub/internal/pkg/chat/persistence/repository/port"
	"convohub/internal/pkg/chat/presentation/controller"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Deps carries everything the chat endpoints need. The repository is the
// port, not the pg adapter, so the same wiring serves tests.
type Deps struct {
	Repo     repository.ChatRepository
	Hub      *realtime.Hub
	Notifier usecase.Notifier
	Resolver idport.Resolver
	Log      *zap.SugaredLogger
	Socket   controller.SocketOptions
}

// RegisterRoutes registers chat-related HTTP endpoints under the given router group.
// It constructs per-endpoint controllers and binds them directly to routes.
func RegisterRoutes(g *gin.RouterGroup, d Deps) {
	sendUC := usecase.NewSendMessageUseCase(d.Repo, d.Hub, d.Notifier, d.Log)
	markReadUC := usecase.NewMarkReadUseCase(d.Repo, d.Hub)

	listCtl := controller.NewListConversationsController(d.Repo)
	createCtl := controller.NewCreateConversationController(d.Repo, d.Hub)
	getMsgCtl := controller.NewGetMessagesController(d.Repo)
	sendMsgCtl := controller.NewSendMessageController(sendUC)
	unreadCtl := controller.NewUnreadCountsController(d.Repo)
	addCtl := controller.NewAddParticipantsController(d.Repo, d.Hub)
	leaveCtl := controller.NewLeaveConversationController(d.Repo, d.Hub)
	delMsgCtl := controller.NewDeleteMessageController(d.Repo, d.Hub)
	socketCtl := controller.NewChatSocketController(d.Resolver, d.Hub, d.Repo, sendUC, markReadUC, d.Socket)

	// GET /api/v1/chat/ws -> websocket endpoint; authenticates its own token
	g.GET("/chat/ws", socketCtl.Handle())

	auth := g.Group("", AuthRequired(d.Resolver))

	// GET    /api/v1/conversations                                -> list the caller's conversations
	auth.GET("/conversations", listCtl.Handle())
	// POST   /api/v1/conversations                                -> create (or find) a conversation
	auth.POST("/conversations", createCtl.Handle())
	// GET    /api/v1/conversations/unread                         -> per-conversation unread counts
	auth.GET("/conversations/unread", unreadCtl.Handle())
	// GET    /api/v1/conversations/:conversationId/messages       -> page through history
	auth.GET("/conversations/:conversationId/messages", getMsgCtl.Handle())
	// POST   /api/v1/conversations/:conversationId/messages       -> send a message
	auth.POST("/conversations/:conversationId/messages", sendMsgCtl.Handle())
	// POST   /api/v1/conversations/:conversationId/participants   -> invite users
	auth.POST("/conversations/:conversationId/participants", addCtl.Handle())
	// DELETE /api/v1/conversations/:conversationId/participants/me -> leave
	auth.DELETE("/conversations/:conversationId/participants/me", leaveCtl.Handle())
	// DELETE /api/v1/messages/:messageId                          -> soft-delete own message
	auth.DELETE("/messages/:messageId", delMsgCtl.Handle())
}
