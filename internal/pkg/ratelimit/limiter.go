// Package ratelimit caps how often a caller may run expensive distinct-count
// searches, using fixed one-minute windows kept in Redis.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/audience-feasibility/internal/pkg/logger"
)

// ErrRateLimited is returned when a caller has used up its window.
var ErrRateLimited = errors.New("rate limit exceeded")

// Lua script for an atomic fixed-window check.
// Increments only if the window still has room, so denied calls are free.
const windowLuaScript = `
local key = KEYS[1]
local increment = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local current = tonumber(redis.call("GET", key) or "0")

if current + increment > limit then
    return {0, current}  -- denied
end

local newVal = redis.call("INCRBY", key, increment)
if newVal == increment then
    redis.call("EXPIRE", key, ttl)
end

return {1, newVal}  -- allowed
`

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Used       int64
	Limit      int
	RetryAfter time.Duration
}

// Limiter provides atomic per-key rate limiting using a Redis Lua script.
type Limiter struct {
	redis     *redis.Client
	script    *redis.Script
	perMinute int
	now       func() time.Time
}

// NewLimiter creates a limiter allowing perMinute calls per key and minute.
func NewLimiter(client *redis.Client, perMinute int) *Limiter {
	return &Limiter{
		redis:     client,
		script:    redis.NewScript(windowLuaScript),
		perMinute: perMinute,
		now:       time.Now,
	}
}

// NewLimiterFromURL creates a limiter by connecting to Redis.
func NewLimiterFromURL(ctx context.Context, redisURL string, perMinute int) (*Limiter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info("rate limiter connected to redis", "addr", opts.Addr, "per_minute", perMinute)

	return NewLimiter(client, perMinute), nil
}

func windowKey(key string, now time.Time) string {
	return fmt.Sprintf("ratelimit:feasibility:%s:%d", key, now.Unix()/60)
}

// Allow records one call for key if its current window has room.
func (l *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	now := l.now()

	result, err := l.script.Run(ctx, l.redis,
		[]string{windowKey(key, now)},
		1,
		l.perMinute,
		120, // 2 minute TTL
	).Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit check failed: %w", err)
	}
	if len(result) != 2 {
		return Decision{}, fmt.Errorf("rate limit check failed: unexpected reply %v", result)
	}

	allowed, _ := result[0].(int64)
	used, _ := result[1].(int64)

	d := Decision{Allowed: allowed == 1, Used: used, Limit: l.perMinute}
	if !d.Allowed {
		d.RetryAfter = time.Duration(60-now.Second()) * time.Second
	}
	return d, nil
}

// Usage returns how many calls key made in the current window.
func (l *Limiter) Usage(ctx context.Context, key string) (int64, error) {
	n, err := l.redis.Get(ctx, windowKey(key, l.now())).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// Ping checks the Redis connection.
func (l *Limiter) Ping(ctx context.Context) error {
	return l.redis.Ping(ctx).Err()
}

// Close closes the Redis connection
func (l *Limiter) Close() error {
	return l.redis.Close()
}
