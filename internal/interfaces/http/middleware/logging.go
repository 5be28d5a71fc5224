package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"gdeltnews/internal/shared/logger"
	"gdeltnews/internal/shared/requestid"
)

func Logger(log logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)

		args := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"query", c.Request.URL.RawQuery,
			"status", c.Writer.Status(),
			"latency", latency,
			"client_ip", c.ClientIP(),
			"body_size", c.Writer.Size(),
			"request_id", requestid.FromContext(c.Request.Context()),
		}

		if len(c.Errors) > 0 {
			args = append(args, "error", c.Errors.Last().Err)
		}

		status := c.Writer.Status()
		switch {
		case status >= 500:
			log.Errorw("HTTP request completed with server error", args...)
		case status >= 400:
			log.Warnw("HTTP request completed with client error", args...)
		default:
			log.Debugw("HTTP request completed successfully", args...)
		}
	}
}
