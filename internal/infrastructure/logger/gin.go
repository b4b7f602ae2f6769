package logger

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Health endpoints are polled every few seconds and would drown out sync activity
var quietPaths = map[string]struct{}{
	"/health":  {},
	"/healthz": {},
	"/ready":   {},
}

// GinMiddleware logs each request and threads request and tenant identity
// into the request context, so repository and gorm logs emitted while
// serving the request carry the same request_id and tenant_id fields.
func GinMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		ctx := c.Request.Context()
		reqLogger := logger
		if requestID := c.GetString("request_id"); requestID != "" {
			ctx, reqLogger = WithRequestID(ctx, reqLogger, requestID)
		}
		if tenantID := c.GetHeader("X-Tenant-ID"); tenantID != "" {
			ctx, reqLogger = WithTenantID(ctx, reqLogger, tenantID)
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if _, quiet := quietPaths[path]; quiet && c.Writer.Status() < http.StatusBadRequest {
			return
		}

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("body_size", c.Writer.Size()),
		}
		if query != "" {
			fields = append(fields, zap.String("query", query))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			reqLogger.Error("request handled", fields...)
		case status >= http.StatusBadRequest:
			reqLogger.Warn("request handled", fields...)
		default:
			reqLogger.Info("request handled", fields...)
		}
	}
}

// Recovery logs panics with the request identity and returns a 500
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				fields := []zap.Field{
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.Any("error", err),
					zap.Stack("stacktrace"),
				}
				if requestID := GetRequestID(c.Request.Context()); requestID != "" {
					fields = append(fields, zap.String("request_id", requestID))
				}
				if tenantID := GetTenantID(c.Request.Context()); tenantID != "" {
					fields = append(fields, zap.String("tenant_id", tenantID))
				}
				logger.Error("panic recovered", fields...)
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}
