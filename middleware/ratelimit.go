package middleware

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/ariebrainware/telemed-api/config"
	"github.com/ariebrainware/telemed-api/util"
	"github.com/gin-gonic/gin"
	cache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const (
	// Rate limiting defaults
	defaultRateLimit  = 5                // 5 attempts
	defaultRateWindow = 15 * time.Minute // per 15 minutes
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	Limit  int
	Window time.Duration
	// ResetOnSuccess clears the client's counter once a request succeeds,
	// so only consecutive failures count against login routes.
	ResetOnSuccess bool
}

// localLimiters keeps per-key token buckets used when Redis is unavailable.
// Idle buckets expire after their window.
type localLimiters struct {
	mu      sync.Mutex
	buckets *cache.Cache
	limit   int
	window  time.Duration
}

func newLocalLimiters(limit int, window time.Duration) *localLimiters {
	return &localLimiters{
		buckets: cache.New(window, window),
		limit:   limit,
		window:  window,
	}
}

func (l *localLimiters) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	var limiter *rate.Limiter
	if v, ok := l.buckets.Get(key); ok {
		limiter = v.(*rate.Limiter)
	} else {
		limiter = rate.NewLimiter(rate.Every(l.window/time.Duration(l.limit)), l.limit)
	}
	l.buckets.Set(key, limiter, cache.DefaultExpiration)
	return limiter.Allow()
}

func (l *localLimiters) forget(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buckets.Delete(key)
}

// RateLimiter creates a rate limiting middleware keyed by path and client
// IP. Counters live in Redis when it is connected, otherwise in process.
func RateLimiter(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Limit == 0 {
		cfg.Limit = defaultRateLimit
	}
	if cfg.Window == 0 {
		cfg.Window = defaultRateWindow
	}
	local := newLocalLimiters(cfg.Limit, cfg.Window)

	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		endpoint := c.Request.URL.Path
		key := rateLimitKey(clientIP, endpoint)

		allowed, err := checkRateLimit(c.Request.Context(), key, cfg.Limit, cfg.Window)
		if err != nil {
			log.Printf("Rate limit check failed, using local limiter: %v", err)
			allowed = local.allow(key)
		} else if config.GetRedisClient() == nil {
			allowed = local.allow(key)
		}

		if !allowed {
			util.LogRateLimitExceeded(util.RateLimitParams{IP: clientIP, Endpoint: endpoint})
			util.CallTooManyRequests(c, util.APIErrorParams{
				Msg: "Too many requests. Please try again later.",
				Err: fmt.Errorf("rate limit exceeded"),
			})
			c.Abort()
			return
		}

		c.Next()

		if cfg.ResetOnSuccess && c.Writer.Status() < http.StatusMultipleChoices {
			local.forget(key)
			if config.GetRedisClient() != nil {
				if err := ResetRateLimit(clientIP, endpoint); err != nil {
					log.Printf("Failed to reset rate limit for %s: %v", key, err)
				}
			}
		}
	}
}

func rateLimitKey(clientIP, endpoint string) string {
	return fmt.Sprintf("ratelimit:%s:%s", endpoint, clientIP)
}

// checkRateLimit counts a hit in Redis and reports whether it is within
// limit. Without a Redis client it allows and leaves the decision to the
// local limiter.
func checkRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return true, nil
	}

	pipe := rdb.Pipeline()
	incrCmd := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}

	return incrCmd.Val() <= int64(limit), nil
}

// ResetRateLimit clears the Redis counter of a client on an endpoint.
func ResetRateLimit(clientIP, endpoint string) error {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return fmt.Errorf("redis not available")
	}
	return rdb.Del(context.Background(), rateLimitKey(clientIP, endpoint)).Err()
}
