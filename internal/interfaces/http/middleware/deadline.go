package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
)

// Deadline attaches the per-request budget to the context. Everything
// downstream, including warehouse scans started on behalf of this request,
// observes the same deadline.
func Deadline(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
