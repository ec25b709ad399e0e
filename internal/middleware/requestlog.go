package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/relicai/relic-backend/internal/logger"
)

// RequestLog tags every request with an id and logs method, path, status and
// latency. Blob payloads are deliberately not logged.
func RequestLog(baseLog *logger.Logger) gin.HandlerFunc {
	log := baseLog.With("middleware", "RequestLog")
	return func(c *gin.Context) {
		requestID := uuid.NewString()
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)

		start := time.Now()
		c.Next()

		log.Info("request",
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
