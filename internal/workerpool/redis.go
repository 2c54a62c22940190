package workerpool

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// KEYS[1] slot counter, ARGV[1] limit, ARGV[2] ttl in ms.
// Every grant refreshes the ttl, so the key only expires once the whole
// cluster has been idle (or crashed holding slots) for ttl.
var acquireSlot = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n > tonumber(ARGV[1]) then
  redis.call('DECR', KEYS[1])
  return 0
end
redis.call('PEXPIRE', KEYS[1], ARGV[2])
return 1
`)

var releaseSlot = redis.NewScript(`
if redis.call('DECR', KEYS[1]) <= 0 then
  redis.call('DEL', KEYS[1])
end
return 1
`)

var errLimiterMisconfigured = errors.New("redis limiter needs a client, a key, a positive limit and a positive ttl")

// RedisLimiter caps in-flight storage tasks across all API replicas with a
// Redis counter.
type RedisLimiter struct {
	rdb   *redis.Client
	key   string
	limit int
	ttl   time.Duration
}

func NewRedisLimiter(rdb *redis.Client, key string, limit int, ttl time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, key: key, limit: limit, ttl: ttl}
}

func (l *RedisLimiter) valid() bool {
	return l.rdb != nil && l.key != "" && l.limit > 0 && l.ttl > 0
}

func (l *RedisLimiter) Acquire(ctx context.Context) (bool, error) {
	if !l.valid() {
		return false, errLimiterMisconfigured
	}
	granted, err := acquireSlot.Run(ctx, l.rdb, []string{l.key}, l.limit, l.ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return granted == 1, nil
}

func (l *RedisLimiter) Release(ctx context.Context) error {
	if !l.valid() {
		return errLimiterMisconfigured
	}
	return releaseSlot.Run(ctx, l.rdb, []string{l.key}).Err()
}
