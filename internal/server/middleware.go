package server

import (
	"net/http"
	"runtime/debug"
	"time"

	"pitch-analyzer/internal/common/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDKey    = "requestId"
	requestIDHeader = "X-Request-Id"
)

// RequestID propagates or assigns a request id.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

// Logging emits one structured line per request.
func Logging(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := map[string]interface{}{
			"request_id":  c.GetString(requestIDKey),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": float64(time.Since(start).Microseconds()) / 1000.0,
			"client_ip":   c.ClientIP(),
		}
		if pitchID := c.GetString("pitchId"); pitchID != "" {
			fields["pitch_id"] = pitchID
		}
		if runID := c.GetString("runId"); runID != "" {
			fields["run_id"] = runID
		}

		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Error("request.complete", fields)
			return
		}
		log.Info("request.complete", fields)
	}
}

// Recovery turns a handler panic into a 500 error body.
func Recovery(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("panic", map[string]interface{}{
					"request_id": c.GetString(requestIDKey),
					"error":      rec,
					"stack":      string(debug.Stack()),
					"path":       c.Request.URL.Path,
				})
				respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Unexpected server error", nil)
			}
		}()
		c.Next()
	}
}
