package ratelimit

import (
	"context"
	"fmt"
	"time"

	"loan-settlement-engine/pkg/id"

	"github.com/redis/go-redis/v9"
)

// slidingWindow trims, counts and records atomically. Scores are unix millis.
var slidingWindow = redis.NewScript(`
local key    = KEYS[1]
local now    = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit  = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
if count >= limit then
  local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
  return {0, tonumber(oldest[2]) + window - now}
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return {1, 0}
`)

// Redis shares the window across service instances.
type Redis struct {
	rdb    redis.Scripter
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewRedis(rdb redis.Scripter, prefix string, limit int, window time.Duration) *Redis {
	return &Redis{rdb: rdb, prefix: prefix, limit: limit, window: window, now: time.Now}
}

func (r *Redis) Allow(ctx context.Context, key string) (time.Duration, bool, error) {
	now := r.now().UnixMilli()
	member := fmt.Sprintf("%d-%s", now, id.NewID32()[:8])
	res, err := slidingWindow.Run(ctx, r.rdb, []string{r.prefix + key},
		now, r.window.Milliseconds(), r.limit, member).Int64Slice()
	if err != nil {
		return 0, false, err
	}
	if len(res) != 2 {
		return 0, false, fmt.Errorf("ratelimit: unexpected script reply %v", res)
	}
	if res[0] == 1 {
		return 0, true, nil
	}
	return time.Duration(res[1]) * time.Millisecond, false, nil
}
