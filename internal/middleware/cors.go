package middleware

import (
	"slices"

	"github.com/gin-gonic/gin"
)

// CORS allows any origin when origins is empty (local development) and only
// the listed ones otherwise.
func CORS(origins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(origins) == 0 {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if o := c.GetHeader("Origin"); slices.Contains(origins, o) {
			c.Header("Access-Control-Allow-Origin", o)
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		c.Header("Access-Control-Expose-Headers", "X-Request-ID")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
