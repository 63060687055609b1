package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireKey guards routes with a shared-secret bearer check. When
// key is empty the check is disabled; otherwise the Authorization
// header must match "Bearer <key>" exactly.
func RequireKey(key string) gin.HandlerFunc {
	expected := "Bearer " + key
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}

		h := c.GetHeader("Authorization")
		if h == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			c.Abort()
			return
		}
		if h != expected {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
			c.Abort()
			return
		}
		c.Next()
	}
}
