package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"go-todo-app/internal/core/ports"
)

const keyPrefix = "ratelimit:auth:"

// tokenBucketScript refills and consumes in one atomic step.
var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local rate = tonumber(ARGV[1])
	local burst = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])
	local ttl = tonumber(ARGV[4])

	local data = redis.call('HMGET', key, 'tokens', 'last_update')
	local tokens = tonumber(data[1]) or burst
	local last_update = tonumber(data[2]) or now

	local elapsed = math.max(0, now - last_update)
	tokens = math.min(burst, tokens + (elapsed * rate))

	local allowed = 0
	local retry_after = 0

	if tokens >= 1 then
		tokens = tokens - 1
		allowed = 1
	else
		retry_after = math.ceil((1 - tokens) / rate)
	end

	redis.call('HSET', key, 'tokens', tostring(tokens), 'last_update', tostring(now))
	redis.call('EXPIRE', key, ttl)

	return {allowed, retry_after, math.floor(tokens)}
`)

var _ ports.RateLimiter = (*Limiter)(nil)

// Limiter is a token bucket shared by every instance pointing at the same
// Redis.
type Limiter struct {
	client *redis.Client
	rate   float64
	burst  int
	ttl    time.Duration
	now    func() time.Time
}

func NewLimiter(addr string, ratePerSecond float64, burst int) *Limiter {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	ttl := time.Duration(float64(burst)/ratePerSecond*float64(time.Second)) + time.Second
	return &Limiter{client: rdb, rate: ratePerSecond, burst: burst, ttl: ttl, now: time.Now}
}

// Allow consumes one token from the bucket for key. Keys are hashed so raw
// client addresses never reach Redis.
func (l *Limiter) Allow(ctx context.Context, key string) (ports.RateLimitResult, error) {
	now := float64(l.now().UnixMilli()) / 1000

	res, err := tokenBucketScript.Run(ctx, l.client,
		[]string{keyPrefix + hashKey(key)},
		l.rate, l.burst, now, int(l.ttl.Seconds())+1,
	).Int64Slice()
	if err != nil {
		return ports.RateLimitResult{}, fmt.Errorf("rate limit script: %w", err)
	}

	return ports.RateLimitResult{
		Allowed:    res[0] == 1,
		RetryAfter: time.Duration(res[1]) * time.Second,
		Remaining:  res[2],
	}, nil
}

func (l *Limiter) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

func (l *Limiter) Close() error {
	return l.client.Close()
}

func hashKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:8])
}
