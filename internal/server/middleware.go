package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nainya/docsim/internal/logger"
	"github.com/nainya/docsim/internal/metrics"
)

// RequestIDHeader carries the per-request correlation id. It is echoed back
// on every response.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "requestID"

// requestID assigns each request a correlation id, honoring one supplied by
// the caller
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set(RequestIDHeader, id)
		c.Next()
	}
}

// observe records metrics and a structured log line for every request
func observe(m *metrics.Metrics, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.HTTPRequestsInFlight.Inc()
		defer m.HTTPRequestsInFlight.Dec()

		c.Next()

		duration := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		m.RecordHTTPRequest(c.Request.Method, route, status, duration)
		log.LogHTTPRequest(c.Request.Method, c.Request.URL.Path, c.GetString(requestIDKey), status, duration)
	}
}

// simulateLatency delays every request by a fixed duration, mimicking a
// backend doing real I/O. Installed only when the delay is non-zero.
func simulateLatency(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		time.Sleep(d)
		c.Next()
	}
}
