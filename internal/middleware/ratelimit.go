package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/kilo-studio/kilo-backend/internal/config"
	"github.com/kilo-studio/kilo-backend/internal/response"
)

// RateLimiter is a fixed-window limiter whose counters live in Redis, so
// every API replica shares one budget per caller.
type RateLimiter struct {
	rdb      redis.Cmdable
	rate     int           // Requests per window
	interval time.Duration // Window length
	log      zerolog.Logger
}

// NewRateLimiter creates a RateLimiter (e.g., 60 requests per minute).
func NewRateLimiter(rdb redis.Cmdable, rate int, interval time.Duration, log zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		rdb:      rdb,
		rate:     rate,
		interval: interval,
		log:      log.With().Str("component", "rate_limiter").Logger(),
	}
}

// Middleware returns a Gin middleware that rate-limits requests by member,
// falling back to client IP for unauthenticated requests. Redis failures
// let the request through.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.rate <= 0 {
			c.Next()
			return
		}

		subject := "ip:" + c.ClientIP()
		if claims := GetClaims(c); claims != nil {
			subject = "member:" + strconv.Itoa(claims.MemberID)
		}

		window := time.Now().Truncate(rl.interval)
		key := config.CacheKey.RateLimitKey(subject, window)

		var incr *redis.IntCmd
		_, err := rl.rdb.TxPipelined(c.Request.Context(), func(pipe redis.Pipeliner) error {
			incr = pipe.Incr(c.Request.Context(), key)
			pipe.Expire(c.Request.Context(), key, rl.interval)
			return nil
		})
		if err != nil {
			rl.log.Warn().Err(err).Str("subject", subject).Msg("Rate limit check failed")
			c.Next()
			return
		}

		remaining := rl.rate - int(incr.Val())
		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.rate))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(max(remaining, 0)))

		if remaining < 0 {
			response.AbortFail(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded)
			return
		}
		c.Next()
	}
}
