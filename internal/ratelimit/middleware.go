package ratelimit

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Middleware returns Gin middleware enforcing per-IP rate limits
func Middleware(limiter *Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			// Limit checks never block requests on infrastructure errors
			c.Next()
			return
		}

		if !allowed {
			limiter.metrics.IncrementRateLimitBlock()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}

		c.Next()
	}
}
