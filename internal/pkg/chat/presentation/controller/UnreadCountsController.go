package controller

import (
	"context"
	"net/http"
	"time"

	"convohub/internal/pkg/chat/application/usecase"
	repository "convohub/internal/pkg/chat/persistence/repository/port"

	"github.com/gin-gonic/gin"
)

// UnreadCountsController reports per-conversation unread totals for the
// caller (one controller per endpoint)
type UnreadCountsController struct {
	UC *usecase.UnreadCountsUseCase
}

func NewUnreadCountsController(repo repository.ChatRepository) *UnreadCountsController {
	return &UnreadCountsController{UC: usecase.NewUnreadCountsUseCase(repo)}
}

func (h *UnreadCountsController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		counts, err := h.UC.Execute(ctx, callerID(c))
		if err != nil {
			writeUseCaseError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"unread": counts})
	}
}
