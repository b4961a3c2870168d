package middlewares

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// IssueRateLimiter caps how many issues a user reports per day. A nil client
// disables the limit.
func IssueRateLimiter(rdb *redis.Client, prefix string, limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil {
			c.Next()
			return
		}
		userID := c.GetString(UserIDKey)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			c.Abort()
			return
		}

		ctx := c.Request.Context()

		// Create individual key for each user
		userKey := prefix + ":" + userID

		// Increment user's count with TTL
		count, err := rdb.Incr(ctx, userKey).Result()
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "rate limiter unavailable"})
			c.Abort()
			return
		}

		// Set TTL only for the first increment (when count = 1)
		if count == 1 {
			if err := rdb.Expire(ctx, userKey, 24*time.Hour).Err(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "rate limiter unavailable"})
				c.Abort()
				return
			}
		}

		if count > int64(limit) {
			retryAfter, _ := rdb.TTL(ctx, userKey).Result()
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": retryAfter.Seconds(),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
