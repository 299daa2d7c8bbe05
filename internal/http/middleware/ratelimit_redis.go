package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"earn_webapp/internal/logger"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// NewRedisClient connects to Redis and pings it once
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// RateLimiter counts requests in fixed Redis windows (INCR/EXPIRE).
// Without a Redis client it limits in process with token buckets.
type RateLimiter struct {
	redis *redis.Client

	mu    sync.Mutex
	local map[string]*localBucket
}

type localBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const localBucketSweep = 10000

func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{redis: client, local: make(map[string]*localBucket)}
}

// PerIP limits by client address.
// key format: rl:<name>:<window_seconds>:<ip>
func (l *RateLimiter) PerIP(name string, maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		l.limit(c, name, c.ClientIP(), maxRequests, window)
	}
}

// PerUser limits by authenticated user; Auth must run first
func (l *RateLimiter) PerUser(name string, maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		l.limit(c, name, "user:"+u.ID, maxRequests, window)
	}
}

func (l *RateLimiter) limit(c *gin.Context, name, ident string, maxRequests int, window time.Duration) {
	endpoint := name + ":" + c.FullPath()
	key := "rl:" + name + ":" + strconv.FormatInt(int64(window.Seconds()), 10) + ":" + ident

	allowed, remaining, ok := l.allowRedis(c.Request.Context(), key, maxRequests, window)
	if !ok {
		allowed, remaining = l.allowLocal(key, maxRequests, window)
	}

	c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

	if !allowed {
		RLBlocked.WithLabelValues(endpoint).Inc()
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":      "rate limit exceeded",
			"retryAfter": int(window.Seconds()),
		})
		return
	}

	RLRequests.WithLabelValues(endpoint).Inc()
	c.Next()
}

// allowRedis reports ok=false when Redis is not configured or failed
func (l *RateLimiter) allowRedis(ctx context.Context, key string, maxRequests int, window time.Duration) (allowed bool, remaining int, ok bool) {
	if l.redis == nil {
		return false, 0, false
	}

	val, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		logger.Warn("rate limiter redis error, falling back to local limiter", "error", err)
		return false, 0, false
	}
	if val == 1 {
		// first increment, set expiry
		l.redis.Expire(ctx, key, window)
	}

	remaining = maxRequests - int(val)
	if remaining < 0 {
		remaining = 0
	}
	return val <= int64(maxRequests), remaining, true
}

func (l *RateLimiter) allowLocal(key string, maxRequests int, window time.Duration) (bool, int) {
	if maxRequests <= 0 {
		return false, 0
	}

	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.local) >= localBucketSweep {
		for k, b := range l.local {
			if now.Sub(b.lastSeen) > window {
				delete(l.local, k)
			}
		}
	}

	b, ok := l.local[key]
	if !ok {
		b = &localBucket{limiter: rate.NewLimiter(rate.Every(window/time.Duration(maxRequests)), maxRequests)}
		l.local[key] = b
	}
	b.lastSeen = now

	allowed := b.limiter.AllowN(now, 1)
	remaining := int(b.limiter.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	return allowed, remaining
}

// Distributed reports whether counters are shared through Redis
func (l *RateLimiter) Distributed() bool { return l != nil && l.redis != nil }

func (l *RateLimiter) Ping(ctx context.Context) error {
	if !l.Distributed() {
		return errors.New("redis not configured")
	}
	return l.redis.Ping(ctx).Err()
}
