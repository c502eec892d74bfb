package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Tarunnagpal7/Mom-Kitchen-Backend/models"
)

// RequireRoles allows the request through only when the authenticated
// principal carries one of the listed roles.
func RequireRoles(allowedRoles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]bool, len(allowedRoles))
	for _, role := range allowedRoles {
		allowed[role] = true
	}

	return func(c *gin.Context) {
		principal, ok := CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "Authentication required"})
			c.Abort()
			return
		}
		if !allowed[principal.Role] {
			c.JSON(http.StatusForbidden, gin.H{"status": "error", "message": "Insufficient role"})
			c.Abort()
			return
		}
		c.Next()
	}
}
