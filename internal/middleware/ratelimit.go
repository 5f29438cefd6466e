package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Limiter counts hits in fixed windows
type Limiter interface {
	// Allow records a hit for key and reports whether it is within limit,
	// plus how long until the window resets.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error)
}

// RedisLimiter is a fixed-window counter shared by all server instances
type RedisLimiter struct {
	rdb *redis.Client
}

func NewRedisLimiter(rdb *redis.Client) *RedisLimiter {
	return &RedisLimiter{rdb: rdb}
}

// Allow implements Limiter with INCR, setting the expiry on the first hit
func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	n, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, err
	}
	if n == 1 {
		if err := l.rdb.PExpire(ctx, key, window).Err(); err != nil {
			return false, 0, err
		}
	}

	retry, err := l.rdb.PTTL(ctx, key).Result()
	if err != nil || retry < 0 {
		// key lost its expiry; restore it so the client is not locked out
		_ = l.rdb.PExpire(ctx, key, window).Err()
		retry = window
	}
	return n <= int64(limit), retry, nil
}

// RateLimit rejects clients that exceed limit requests per window with 429.
// scope separates counters for different route groups. Limiter errors let
// the request through.
func RateLimit(l Limiter, scope string, limit int, window time.Duration, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 {
			c.Next()
			return
		}

		key := "ratelimit:" + scope + ":" + c.ClientIP()
		allowed, retry, err := l.Allow(c.Request.Context(), key, limit, window)
		if err != nil {
			log.WithError(err).Warn("rate limiter unavailable")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		if !allowed {
			secs := int((retry + time.Second - 1) / time.Second)
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			abort(c, http.StatusTooManyRequests, "Too many requests. Please try again later")
			return
		}
		c.Next()
	}
}
