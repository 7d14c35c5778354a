package controller

import (
	"context"
	"net/http"
	"time"

	"convohub/internal/pkg/chat/application/usecase"
	repository "convohub/internal/pkg/chat/persistence/repository/port"

	"github.com/gin-gonic/gin"
)

// AddParticipantsController invites users into an existing conversation
// (one controller per endpoint)
type AddParticipantsController struct {
	UC *usecase.AddParticipantsUseCase
}

func NewAddParticipantsController(repo repository.ChatRepository, b usecase.Broadcaster) *AddParticipantsController {
	return &AddParticipantsController{UC: usecase.NewAddParticipantsUseCase(repo, b)}
}

type addParticipantsRequest struct {
	UserIDs []string `json:"userIds" binding:"required"`
}

func (h *AddParticipantsController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		conversationID := c.Param("conversationId")
		if conversationID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "conversationId is required"})
			return
		}

		var req addParticipantsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		conv, err := h.UC.Execute(ctx, usecase.AddParticipantsInput{
			ConversationID: conversationID,
			RequesterID:    callerID(c),
			UserIDs:        req.UserIDs,
		})
		if err != nil {
			writeUseCaseError(c, err)
			return
		}
		c.JSON(http.StatusOK, conv)
	}
}
