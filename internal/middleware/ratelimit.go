package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/edutrack/attendance-api/internal/repository"
	appErrors "github.com/edutrack/attendance-api/pkg/errors"
	"github.com/edutrack/attendance-api/pkg/response"
)

const rateLimitWindow = time.Minute

// RateLimit throttles a route per authenticated user using a Redis
// counter. Fails open when the cache is unavailable so an outage does
// not block check-ins.
func RateLimit(cache *repository.CacheRepository, limit int, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		if cache == nil || limit <= 0 {
			c.Next()
			return
		}
		claims, ok := ClaimsFromContext(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		key := "ratelimit:checkin:" + claims.UserID
		count, err := cache.Incr(c.Request.Context(), key, rateLimitWindow)
		if err != nil {
			logger.Warn("rate limit counter unavailable", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}
		if count > int64(limit) {
			response.Error(c, appErrors.ErrRateLimited)
			c.Abort()
			return
		}
		c.Next()
	}
}
