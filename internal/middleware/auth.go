package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"courtbook/api/internal/service"
)

// ContextUser is the gin context key holding the authenticated profile.
const ContextUser = "current_user"

// Auth validates the bearer session token against server-side session
// state and stashes the caller's profile on the context.
func Auth(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false, "error": "missing_token", "message": "authorization required",
			})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")

		profile, err := auth.ValidateSession(c.Request.Context(), token)
		if err != nil {
			code := "session_invalid"
			if errors.Is(err, service.ErrInvalidToken) {
				code = "invalid_token"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false, "error": code, "message": "session is not valid",
			})
			return
		}

		c.Set(ContextUser, profile)
		c.Next()
	}
}
