package logger

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ginRequestIDKey is the gin context key populated by the request ID
// middleware in interfaces/http/middleware.
const ginRequestIDKey = "X-Request-ID"

// ginLoggerKey is where the request-scoped logger lives in the gin context.
const ginLoggerKey = "logger"

// GinMiddleware logs every HTTP request and threads a request-scoped
// logger through both the gin context and the request context, so
// anything downstream of the handler (the SQL trace logger included)
// tags its entries with the same request ID.
func GinMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		requestID := c.GetString(ginRequestIDKey)

		ctx, reqLog := WithRequestID(c.Request.Context(), log, requestID)
		c.Set(ginLoggerKey, reqLog)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("route", c.FullPath()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("bytes_out", c.Writer.Size()),
		}
		if query != "" {
			fields = append(fields, zap.String("query", query))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}

		switch {
		case status >= http.StatusInternalServerError:
			reqLog.Error("request completed", fields...)
		case status >= http.StatusBadRequest:
			reqLog.Warn("request completed", fields...)
		default:
			reqLog.Info("request completed", fields...)
		}
	}
}

// Recovery converts panics into 500 responses and logs the stack.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic recovered",
					zap.String("request_id", c.GetString(ginRequestIDKey)),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.Any("panic", r),
					zap.Stack("stacktrace"),
				)
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}

// FromGin returns the request-scoped logger installed by GinMiddleware,
// or a no-op logger outside of a request.
func FromGin(c *gin.Context) *zap.Logger {
	if value, exists := c.Get(ginLoggerKey); exists {
		if log, ok := value.(*zap.Logger); ok {
			return log
		}
	}
	return zap.NewNop()
}
