package server

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader carries the request identifier on every response.
	RequestIDHeader = "X-Request-ID"
	// TokenHeader carries the shared service token.
	TokenHeader = "X-Agent-Token"

	requestIDKey = "request_id"
	loggerKey    = "logger"
)

// NewRequestID returns "req_" followed by 8 hex characters.
func NewRequestID() string {
	return "req_" + uuid.NewString()[:8]
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := NewRequestID()
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// requestLogger returns the per-request logger set by accessLog, or base.
func requestLogger(c *gin.Context, base *slog.Logger) *slog.Logger {
	if value, ok := c.Get(loggerKey); ok {
		if logger, ok := value.(*slog.Logger); ok {
			return logger
		}
	}
	return base
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		logger := s.logger.With(slog.String(requestIDKey, c.GetString(requestIDKey)))
		c.Set(loggerKey, logger)

		logger.DebugContext(c.Request.Context(), "request started",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
		)

		c.Next()

		logger.InfoContext(c.Request.Context(), "request completed",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Float64("latency_ms", float64(time.Since(start).Microseconds())/1000),
		)
	}
}

func (s *Server) recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		requestLogger(c, s.logger).ErrorContext(c.Request.Context(), "panic while handling request",
			slog.Any("panic", recovered),
			slog.String("path", c.Request.URL.Path),
		)
		abortWithError(c, http.StatusInternalServerError, CodeInternal, "Internal server error.")
	})
}

// authenticate enforces an exact X-Agent-Token match when a service token
// is configured. With no token configured every request passes.
func (s *Server) authenticate() gin.HandlerFunc {
	expected := []byte(s.settings.AgentServiceToken)
	return func(c *gin.Context) {
		if len(expected) == 0 {
			c.Next()
			return
		}
		if subtle.ConstantTimeCompare([]byte(c.GetHeader(TokenHeader)), expected) != 1 {
			abortWithError(c, http.StatusUnauthorized, CodeUnauthenticated, "Invalid or missing service token.")
			return
		}
		c.Next()
	}
}
