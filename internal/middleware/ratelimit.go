package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"mine-game-backend/internal/services"
)

// RateLimitMiddleware caps requests per client IP for one action. Store
// failures let the request through.
func RateLimitMiddleware(limiter services.RateLimiter, log *logrus.Logger, action string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, err := limiter.CheckRateLimit(c.Request.Context(), c.ClientIP(), action, limit, window)
		if err != nil {
			log.WithError(err).WithField("action", action).Warn("rate limit check failed")
			c.Next()
			return
		}
		if !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": window.Seconds(),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
