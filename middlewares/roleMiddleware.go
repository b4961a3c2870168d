package middlewares

import (
	"net/http"

	"fixit-be/models"

	"github.com/gin-gonic/gin"
)

// RequireRoles lets through callers holding one of roles. Admins always pass.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			c.Abort()
			return
		}
		if user.IsAdmin() || user.HasRole(roles...) {
			c.Next()
			return
		}
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have access to this resource"})
		c.Abort()
	}
}
