package controller

import (
	"context"
	"net/http"
	"time"

	"convohub/internal/pkg/chat/application/usecase"
	repository "convohub/internal/pkg/chat/persistence/repository/port"

	"github.com/gin-gonic/gin"
)

// DeleteMessageController soft-deletes a message the caller sent
// (one controller per endpoint)
type DeleteMessageController struct {
	UC *usecase.DeleteMessageUseCase
}

func NewDeleteMessageController(repo repository.ChatRepository, b usecase.Broadcaster) *DeleteMessageController {
	return &DeleteMessageController{UC: usecase.NewDeleteMessageUseCase(repo, b)}
}

func (h *DeleteMessageController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		messageID := c.Param("messageId")
		if messageID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "messageId is required"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		err := h.UC.Execute(ctx, usecase.DeleteMessageInput{
			MessageID: messageID,
			UserID:    callerID(c),
		})
		if err != nil {
			writeUseCaseError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
