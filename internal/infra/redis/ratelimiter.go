package redis

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/kursadbilgin/fitting-request/internal/ratelimit"
	goredis "github.com/redis/go-redis/v9"
)

// The counter's window opens on the first allowed call and closes when the
// key expires. Denied calls are not counted.
var allowScript = goredis.NewScript(`
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
if current >= tonumber(ARGV[1]) then
  return 0
end
current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[2])
end
return 1
`)

var _ ratelimit.Limiter = (*RedisRateLimiter)(nil)

// RedisRateLimiter is the atomic counterpart of the database limiter: the
// check and the increment run as one script.
type RedisRateLimiter struct {
	client *goredis.Client
	prefix string
	script *goredis.Script
}

func NewRedisRateLimiter(client *goredis.Client, prefix string) (*RedisRateLimiter, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if prefix == "" {
		prefix = "ratelimit"
	}

	return &RedisRateLimiter{
		client: client,
		prefix: prefix,
		script: allowScript,
	}, nil
}

func (r *RedisRateLimiter) CheckRateLimit(ctx context.Context, identifier, action string, limit int, window time.Duration) (bool, error) {
	if r == nil || r.client == nil || r.script == nil {
		return false, fmt.Errorf("rate limiter is not initialized")
	}

	normalizedAction := strings.ToLower(strings.TrimSpace(action))
	if identifier == "" || normalizedAction == "" {
		return false, fmt.Errorf("identifier and action are required")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	seconds := int64(math.Ceil(window.Seconds()))
	if seconds < 1 {
		seconds = 1
	}

	key := fmt.Sprintf("%s:%s:%s", r.prefix, normalizedAction, identifier)
	result, err := r.script.Run(ctx, r.client, []string{key}, limit, seconds).Int()
	if err != nil {
		return false, fmt.Errorf("failed to evaluate rate limit: %w", err)
	}

	return result == 1, nil
}
