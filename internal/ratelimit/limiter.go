// Package ratelimit throttles public write endpoints with fixed-window
// counters kept in Redis.
package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/portfolio-api/internal/pkg/logger"
)

// Increments the window counter and starts the window on first hit.
// Returns {count, remaining ttl in ms}.
const fixedWindowLuaScript = `
local key = KEYS[1]
local window = tonumber(ARGV[1])

local count = redis.call("INCR", key)
if count == 1 then
    redis.call("PEXPIRE", key, window)
end

local ttl = redis.call("PTTL", key)
if ttl < 0 then
    redis.call("PEXPIRE", key, window)
    ttl = window
end

return {count, ttl}
`

// Decision is the result of a single Allow call.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter is a per-key fixed-window limiter. A nil *Limiter allows
// everything.
type Limiter struct {
	redis  redis.Cmdable
	script *redis.Script
	prefix string
	limit  int
	window time.Duration
}

// New creates a limiter permitting limit hits per window for each key.
// Keys are stored as "ratelimit:<prefix>:<key>".
func New(client redis.Cmdable, prefix string, limit int, window time.Duration) *Limiter {
	return &Limiter{
		redis:  client,
		script: redis.NewScript(fixedWindowLuaScript),
		prefix: prefix,
		limit:  limit,
		window: window,
	}
}

// Allow records a hit for key and reports whether it is within the limit.
// Redis failures are logged and the hit is allowed.
func (l *Limiter) Allow(ctx context.Context, key string) Decision {
	if l == nil || l.redis == nil || l.limit <= 0 {
		return Decision{Allowed: true}
	}

	res, err := l.script.Run(ctx, l.redis,
		[]string{"ratelimit:" + l.prefix + ":" + key},
		l.window.Milliseconds(),
	).Int64Slice()
	if err != nil || len(res) != 2 {
		logger.Warn("rate limit check failed, allowing request", "prefix", l.prefix, "error", err)
		return Decision{Allowed: true}
	}

	count, ttl := int(res[0]), time.Duration(res[1])*time.Millisecond
	if count > l.limit {
		return Decision{Allowed: false, RetryAfter: ttl}
	}
	return Decision{Allowed: true, Remaining: l.limit - count}
}
