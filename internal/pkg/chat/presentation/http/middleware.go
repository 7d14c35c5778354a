package http

import (
	"net/http"
	"strings"

	idport "convohub/internal/infrastructure/identity/port"

	"github.com/gin-gonic/gin"
)

// ContextUserID is the gin context key the auth middleware stores the
// resolved caller under.
const ContextUserID = "userID"

// AuthRequired resolves the bearer credential on every request and aborts
// with 401 when it cannot be verified. Controllers read the caller from the
// context and never parse credentials themselves.
func AuthRequired(resolver idport.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing credentials"})
			return
		}
		identity, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.Set(ContextUserID, identity.UserID)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	// websocket clients cannot set headers from the browser
	return c.Query("token")
}

// CallerID reads the authenticated user set by AuthRequired.
func CallerID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}
