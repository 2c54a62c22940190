package httpapi

import (
	"classboard/internal/audit"

	"github.com/gin-gonic/gin"
)

// ClientIP puts the resolved client IP on the request context for audit
// records. Gin's trusted-proxy settings decide which header wins.
func ClientIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(audit.WithClientIP(c.Request.Context(), c.ClientIP()))
		c.Next()
	}
}
