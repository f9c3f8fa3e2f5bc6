package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// takeScript is the admission rule evaluated inside redis so the
// read-check-increment is atomic across replicas. A missing or elapsed
// bucket starts fresh; a rejection leaves the bucket untouched.
const takeScript = `
local key = KEYS[1]
local max = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local count = tonumber(redis.call("HGET", key, "count") or "0")
local windowEnd = tonumber(redis.call("HGET", key, "windowEnd") or "0")

if windowEnd <= now then
    count = 0
    windowEnd = now + window
end

if count >= max then
    return {0, count, windowEnd}
end

count = count + 1
redis.call("HSET", key, "count", count, "windowEnd", windowEnd)
redis.call("PEXPIREAT", key, windowEnd)
return {1, count, windowEnd}
`

// RedisStore keeps buckets in redis hashes that expire with their window.
type RedisStore struct {
	rdb    redis.Scripter
	prefix string
	script *redis.Script
}

type RedisOption func(*RedisStore)

func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.prefix = strings.Trim(prefix, ":") }
}

func NewRedisStore(rdb redis.Scripter, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		rdb:    rdb,
		prefix: "leadsync:ratelimit",
		script: redis.NewScript(takeScript),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewRedisStoreFromURL connects and pings before returning.
func NewRedisStoreFromURL(ctx context.Context, url string, opts ...RedisOption) (*RedisStore, *redis.Client, error) {
	o, err := redis.ParseURL(url)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(o)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return NewRedisStore(client, opts...), client, nil
}

func (s *RedisStore) Take(ctx context.Context, key string, max int, window time.Duration, now time.Time) (Result, error) {
	vals, err := s.script.Run(ctx, s.rdb, []string{s.prefix + ":" + key},
		max, window.Milliseconds(), now.UnixMilli()).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit take %s: %w", key, err)
	}
	if len(vals) != 3 {
		return Result{}, fmt.Errorf("ratelimit take %s: unexpected reply %v", key, vals)
	}

	windowEnd := time.UnixMilli(vals[2])
	if vals[0] == 0 {
		return Result{
			Allowed:           false,
			ResetAt:           windowEnd,
			RetryAfterSeconds: retryAfter(windowEnd.Sub(now)),
		}, nil
	}
	return Result{
		Allowed:   true,
		Remaining: max - int(vals[1]),
		ResetAt:   windowEnd,
	}, nil
}
