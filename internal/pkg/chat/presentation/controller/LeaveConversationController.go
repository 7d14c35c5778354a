package controller

import (
	"context"
	"net/http"
	"time"

	"convohub/internal/pkg/chat/application/usecase"
	repository "convohub/internal/pkg/chat/persistence/repository/port"

	"github.com/gin-gonic/gin"
)

// LeaveConversationController removes the caller from a conversation
// (one controller per endpoint)
type LeaveConversationController struct {
	UC *usecase.LeaveConversationUseCase
}

func NewLeaveConversationController(repo repository.ChatRepository, b usecase.Broadcaster) *LeaveConversationController {
	return &LeaveConversationController{UC: usecase.NewLeaveConversationUseCase(repo, b)}
}

func (h *LeaveConversationController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		conversationID := c.Param("conversationId")
		if conversationID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "conversationId is required"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		err := h.UC.Execute(ctx, usecase.LeaveConversationInput{
			ConversationID: conversationID,
			UserID:         callerID(c),
		})
		if err != nil {
			writeUseCaseError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
