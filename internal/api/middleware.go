package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ulule/limiter/v3"
	"gitlab.com/yelinaung/smart-finance/internal/logger"
)

const (
	sessionHeader   = "X-Session-ID"
	requestIDHeader = "X-Request-ID"

	maxSessionLength = 128
)

// requestLogger tags each request with an ID and logs its outcome.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := uuid.NewString()
		c.Header(requestIDHeader, requestID)

		c.Next()

		status := c.Writer.Status()
		event := logger.Log.Info()
		if status >= http.StatusInternalServerError {
			event = logger.Log.Error()
		} else if status >= http.StatusBadRequest {
			event = logger.Log.Warn()
		}
		event.
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("Request completed")
	}
}

// rateLimit applies a per-IP limit.
func rateLimit(l *limiter.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		lc, err := l.Get(c.Request.Context(), ip)
		if err != nil {
			logger.Log.Error().Err(err).Msg("Failed to check rate limit")
			c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody("internal error"))
			return
		}

		if lc.Reached {
			logger.Log.Warn().
				Str("session_hash", logger.HashSession(ip)).
				Int64("limit", lc.Limit).
				Msg("Rate limit exceeded")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorBody("too many requests, please try again later"))
			return
		}

		c.Next()
	}
}

// sessionKey identifies the caller for the ledger's in-flight guard.
func sessionKey(c *gin.Context) string {
	if id := strings.TrimSpace(c.GetHeader(sessionHeader)); id != "" {
		if len(id) > maxSessionLength {
			id = id[:maxSessionLength]
		}
		return "session:" + id
	}
	return "ip:" + c.ClientIP()
}
