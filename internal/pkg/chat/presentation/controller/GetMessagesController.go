package controller

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"convohub/internal/pkg/chat/application/usecase"
	repository "convohub/internal/pkg/chat/persistence/repository/port"

	"github.com/gin-gonic/gin"
)

// GetMessagesController pages through a conversation's history
// (one controller per endpoint)
type GetMessagesController struct {
	UC *usecase.GetMessagesUseCase
}

func NewGetMessagesController(repo repository.ChatRepository) *GetMessagesController {
	return &GetMessagesController{UC: usecase.NewGetMessagesUseCase(repo)}
}

func (h *GetMessagesController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		conversationID := c.Param("conversationId")
		if conversationID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "conversationId is required"})
			return
		}

		in := usecase.GetMessagesInput{
			ConversationID: conversationID,
			ViewerID:       callerID(c),
		}
		if v := c.Query("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				in.Limit = n
			}
		}
		if v := c.Query("before"); v != "" {
			before, err := time.Parse(time.RFC3339Nano, v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "before must be an RFC 3339 timestamp"})
				return
			}
			in.Before = &before
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		msgs, err := h.UC.Execute(ctx, in)
		if err != nil {
			writeUseCaseError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"messages": msgs, "count": len(msgs)})
	}
}
