package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"courtbook/api/internal/models"
)

// RequireRoles gates a route to callers holding one of the given roles.
// It assumes Auth already ran.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	roleSet := make(map[models.UserRole]struct{}, len(roles))
	for _, role := range roles {
		roleSet[role] = struct{}{}
	}

	return func(c *gin.Context) {
		userVal, exists := c.Get(ContextUser)
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false, "error": "unauthorized", "message": "authentication required",
			})
			return
		}
		profile, ok := userVal.(models.PublicProfile)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false, "error": "unauthorized", "message": "authentication required",
			})
			return
		}

		if _, ok := roleSet[profile.Role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false, "error": "forbidden", "message": "insufficient role",
			})
			return
		}

		c.Next()
	}
}
