package controller

import (
	"errors"
	"net/http"

	chat "convohub/internal/pkg/chat/application/domain"
	"convohub/internal/pkg/chat/application/usecase"

	"github.com/gin-gonic/gin"
)

// contextUserID matches the key the auth middleware stores the caller under.
const contextUserID = "userID"

func callerID(c *gin.Context) string {
	return c.GetString(contextUserID)
}

// writeUseCaseError maps domain errors onto HTTP statuses. Shared by every
// controller so clients see consistent error shapes.
func writeUseCaseError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, chat.ErrNotParticipant):
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant in this conversation"})
	case errors.Is(err, chat.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": "only the sender may delete a message"})
	case errors.Is(err, chat.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, usecase.ErrPersistence):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unexpected persistence error"})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}
