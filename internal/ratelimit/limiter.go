package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"golang.org/x/time/rate"

	"github.com/placementhub/readiness/internal/monitoring"
)

// Config holds rate limiting configuration
type Config struct {
	RequestsPerMinute int
	Burst             int
}

// DefaultConfig returns sensible defaults for the API
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 120,
		Burst:             20,
	}
}

// Limiter enforces per-client rate limits backed by Redis, degrading to
// in-memory token buckets when Redis is unavailable.
type Limiter struct {
	redisLimiter *redis_rate.Limiter
	redisClient  *RedisClient
	config       Config
	metrics      *monitoring.Metrics

	fallbackMu sync.Mutex
	fallback   map[string]*rate.Limiter
}

// NewLimiter creates a rate limiter using the given Redis client
func NewLimiter(redisClient *RedisClient, config Config, metrics *monitoring.Metrics) *Limiter {
	l := &Limiter{
		redisClient: redisClient,
		config:      config,
		metrics:     metrics,
		fallback:    make(map[string]*rate.Limiter),
	}

	if redisClient.IsEnabled() {
		l.redisLimiter = redis_rate.NewLimiter(redisClient.GetClient())
	}

	return l
}

// Allow reports whether the client identified by key may proceed
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.redisLimiter != nil {
		allowed, err := l.allowRedis(ctx, key)
		if err == nil {
			return allowed, nil
		}
		slog.Warn("Redis rate limit check failed, using fallback", "key", key, "error", err)
		l.metrics.IncrementRateLimitRedisError()
	}

	l.metrics.IncrementRateLimitFallback()
	return l.allowFallback(key), nil
}

// allowRedis checks the limit against Redis using a sliding window
func (l *Limiter) allowRedis(ctx context.Context, key string) (bool, error) {
	res, err := l.redisLimiter.Allow(ctx, fmt.Sprintf("ratelimit:%s", key), redis_rate.Limit{
		Rate:   l.config.RequestsPerMinute,
		Period: time.Minute,
		Burst:  l.config.Burst,
	})
	if err != nil {
		return false, err
	}

	return res.Allowed > 0, nil
}

// allowFallback checks the limit against a local token bucket
func (l *Limiter) allowFallback(key string) bool {
	l.fallbackMu.Lock()
	defer l.fallbackMu.Unlock()

	limiter, exists := l.fallback[key]
	if !exists {
		limiter = rate.NewLimiter(rate.Limit(float64(l.config.RequestsPerMinute)/60.0), l.config.Burst)
		l.fallback[key] = limiter
	}

	return limiter.Allow()
}

// Stats returns limiter statistics for the health endpoint
func (l *Limiter) Stats() map[string]interface{} {
	l.fallbackMu.Lock()
	fallbackBuckets := len(l.fallback)
	l.fallbackMu.Unlock()

	return map[string]interface{}{
		"requests_per_minute": l.config.RequestsPerMinute,
		"burst":               l.config.Burst,
		"redis":               l.redisClient.GetPoolStats(),
		"fallback_buckets":    fallbackBuckets,
	}
}
