package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-Id"

// RequestID attaches a fresh UUID to every response so log lines and
// client reports can be correlated.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set(requestIDHeader, uuid.NewString())
		c.Next()
	}
}
