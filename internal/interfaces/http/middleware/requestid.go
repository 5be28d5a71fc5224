package middleware

import (
	"github.com/gin-gonic/gin"

	"gdeltnews/internal/shared/requestid"
)

// RequestID assigns every request a short correlation ID, honoring an
// incoming X-Request-ID header when present. The ID rides the request
// context and is echoed back in the response header.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = requestid.New()
		}

		ctx := requestid.WithContext(c.Request.Context(), id)
		c.Request = c.Request.WithContext(ctx)
		c.Writer.Header().Set("X-Request-ID", id)

		c.Next()
	}
}
