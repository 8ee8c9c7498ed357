package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireAdminMiddleware blocks non-admin accounts. It relies on the
// is_admin claim baked into the access token at login time, so a demoted
// admin keeps access until the token expires.
func RequireAdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		value, ok := c.Get("isAdmin")
		if ok {
			if isAdmin, ok := value.(bool); ok && isAdmin {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
	}
}
