package middleware

import (
	"net/http"
	"time"

	"role-gate/internal/logger"

	"github.com/gin-gonic/gin"
)

// GinRequestID adapts the net/http RequestID middleware to Gin.
func GinRequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c.Request = r
			c.Next()
		})

		RequestID(next).ServeHTTP(c.Writer, c.Request)
	}
}

// GinAccessLog writes one structured line per request.
func GinAccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		requestID, _ := RequestIDFromContext(c.Request.Context())
		logger.Info("http request", map[string]any{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"request_id": requestID,
		})
	}
}
