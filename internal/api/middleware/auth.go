// server/internal/api/middleware/auth.go
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"sistema-bup-api-server/internal/auth"
)

// Context keys set by Authenticate.
const (
	UserIDKey = "user_id"
	EmailKey  = "user_email"
	TokenKey  = "user_token"
)

// SessionReader resolves a bearer token to its session.
type SessionReader interface {
	CurrentSession(ctx context.Context, token string) (*auth.Session, error)
}

// Authenticate rejects requests without a valid, unrevoked bearer token and
// stores the session user in the context.
func Authenticate(sessions SessionReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "message": "Authorization header is required"})
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "message": "Invalid token format"})
			return
		}

		session, err := sessions.CurrentSession(c.Request.Context(), tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": auth.Kind(err), "message": err.Error()})
			return
		}
		if session == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "message": "Invalid or expired token"})
			return
		}

		c.Set(UserIDKey, session.ID)
		c.Set(EmailKey, session.Email)
		c.Set(TokenKey, tokenString)
		c.Next()
	}
}
