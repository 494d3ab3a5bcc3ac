// Package ratelimit throttles login attempts per client address.
package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Rule caps events at Max per Window.
type Rule struct {
	Window time.Duration
	Max    int
}

func (r Rule) disabled() bool { return r.Max <= 0 || r.Window <= 0 }

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

// Backend records an attempt for key and reports whether it fits rule.
type Backend interface {
	Allow(ctx context.Context, key string, rule Rule) (Decision, error)
}

// slidingScript trims entries older than the window, admits the attempt only
// when there is room, and returns {admitted, count, oldest_ms}. Rejected
// attempts are not recorded so a locked-out client recovers on schedule.
var slidingScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local max = tonumber(ARGV[3])
redis.call("ZREMRANGEBYSCORE", key, "-inf", now - window)
local count = redis.call("ZCARD", key)
local admitted = 0
if count < max then
  redis.call("ZADD", key, now, ARGV[4])
  count = count + 1
  admitted = 1
end
redis.call("PEXPIRE", key, window)
local oldest = redis.call("ZRANGE", key, 0, 0, "WITHSCORES")
local first = now
if oldest[2] then first = tonumber(oldest[2]) end
return {admitted, count, first}
`)

// SlidingWindow keeps one sorted set of attempt timestamps per key in Redis.
type SlidingWindow struct {
	Client *redis.Client
	Prefix string
}

func (l SlidingWindow) Allow(ctx context.Context, key string, rule Rule) (Decision, error) {
	now := time.Now()
	if l.Client == nil || rule.disabled() {
		return Decision{Allowed: true, Remaining: rule.Max, Reset: now.Add(rule.Window)}, nil
	}
	redisKey := key
	if l.Prefix != "" {
		redisKey = l.Prefix + ":" + key
	}
	res, err := slidingScript.Run(ctx, l.Client, []string{redisKey},
		now.UnixMilli(),
		rule.Window.Milliseconds(),
		rule.Max,
		strconv.FormatInt(now.UnixNano(), 36)+"-"+uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return Decision{Reset: now.Add(rule.Window)}, err
	}
	admitted, count, oldest := res[0], int(res[1]), res[2]
	return Decision{
		Allowed:   admitted == 1,
		Remaining: max(rule.Max-count, 0),
		Reset:     time.UnixMilli(oldest).Add(rule.Window),
	}, nil
}
