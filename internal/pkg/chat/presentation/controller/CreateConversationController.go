package controller

import (
	"context"
	"net/http"
	"time"

	"convohub/internal/pkg/chat/application/usecase"
	repository "convohub/internal/pkg/chat/persistence/repository/port"

	"github.com/gin-gonic/gin"
)

// CreateConversationController handles conversation creation (one controller per endpoint)
type CreateConversationController struct {
	UC *usecase.CreateConversationUseCase
}

func NewCreateConversationController(repo repository.ChatRepository, b usecase.Broadcaster) *CreateConversationController {
	return &CreateConversationController{UC: usecase.NewCreateConversationUseCase(repo, b)}
}

type createConversationRequest struct {
	ParticipantIDs []string `json:"participantIds" binding:"required"`
	Name           *string  `json:"name"`
}

func (h *CreateConversationController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createConversationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		conv, err := h.UC.Execute(ctx, usecase.CreateConversationInput{
			CreatorID:      callerID(c),
			ParticipantIDs: req.ParticipantIDs,
			Name:           req.Name,
		})
		if err != nil {
			writeUseCaseError(c, err)
			return
		}
		c.JSON(http.StatusCreated, conv)
	}
}
