// internal/interfaces/http/middleware/rate_limit.go
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/pkg/apperrors"
)

// RateLimit implements a fixed one-minute window per client IP using Redis.
// A nil client or a Redis error lets the request through.
func RateLimit(redisClient *redis.Client, perMinute int, logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if redisClient == nil || perMinute <= 0 {
			c.Next()
			return
		}

		window := time.Now().Unix() / 60
		key := fmt.Sprintf("rate_limit:%s:%d", c.ClientIP(), window)

		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		pipe := redisClient.TxPipeline()
		incr := pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, time.Minute)
		if _, err := pipe.Exec(ctx); err != nil {
			logger.WithError(err).Debug("rate limiter unavailable")
			c.Next()
			return
		}

		current := int(incr.Val())
		remaining := perMinute - current
		if remaining < 0 {
			remaining = 0
		}
		reset := (window + 1) * 60

		c.Header("X-RateLimit-Limit", strconv.Itoa(perMinute))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(reset, 10))

		if current > perMinute {
			c.Header("Retry-After", strconv.FormatInt(reset-time.Now().Unix(), 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded",
				"code":  apperrors.CodeRateLimit,
			})
			return
		}

		c.Next()
	}
}
