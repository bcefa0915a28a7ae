package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

// requestIDMiddleware reuses a caller-supplied id or mints a UUID.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func requestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// accessLogMiddleware writes one line per request and records HTTP metrics.
func (s *Server) accessLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		s.metrics.ObserveHTTP(c.Request.Method, route, status, latency)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("request_id", requestID(c)),
		}
		switch {
		case status >= http.StatusInternalServerError:
			s.log.Error("request", fields...)
		case status >= http.StatusBadRequest:
			s.log.Warn("request", fields...)
		default:
			s.log.Info("request", fields...)
		}
	}
}

// rateLimitMiddleware applies one token bucket to the whole API.
func (s *Server) rateLimitMiddleware(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			s.metrics.RateLimited()
			c.Header("Retry-After", "1")
			abort(c, http.StatusTooManyRequests, CodeRateLimited, "rate limit exceeded")
			return
		}
		c.Next()
	}
}

// recoveryMiddleware turns panics into a JSON 500.
func (s *Server) recoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		s.log.Error("panic serving request",
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", requestID(c)),
			zap.String("panic", fmt.Sprint(recovered)))
		abort(c, http.StatusInternalServerError, CodeInternal, "internal error")
	})
}
