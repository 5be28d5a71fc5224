package middleware

import (
	"github.com/gin-gonic/gin"

	"gdeltnews/internal/shared/errors"
	"gdeltnews/internal/shared/utils"
)

// InFlightLimiter caps the number of requests being served at once.
// Requests over the cap are refused immediately with 429 rather than queued,
// since a queued request would likely blow its deadline anyway.
type InFlightLimiter struct {
	slots chan struct{}
}

func NewInFlightLimiter(max int) *InFlightLimiter {
	return &InFlightLimiter{
		slots: make(chan struct{}, max),
	}
}

// Limit returns a Gin middleware that enforces the in-flight cap.
func (l *InFlightLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		select {
		case l.slots <- struct{}{}:
			defer func() { <-l.slots }()
			c.Next()
		default:
			utils.ErrorResponseWithError(c,
				errors.NewRateLimitedError("server is at capacity, please retry"))
			c.Abort()
		}
	}
}
