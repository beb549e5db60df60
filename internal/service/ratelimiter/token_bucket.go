// Package ratelimiter throttles outbound scoring calls with a Redis token
// bucket shared by every API replica.
package ratelimiter

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter decides whether a call costing cost tokens may proceed now.
type Limiter interface {
	Allow(ctx context.Context, key string, cost int64) (allowed bool, retryAfter time.Duration, err error)
}

// BucketConfig is a bucket's burst capacity and refill rate in tokens per second.
type BucketConfig struct {
	Capacity   int64
	RefillRate float64
}

// PerMinute returns a bucket that allows perMinute calls with a burst of the same size.
func PerMinute(perMinute int) BucketConfig {
	if perMinute <= 0 {
		return BucketConfig{}
	}
	return BucketConfig{Capacity: int64(perMinute), RefillRate: float64(perMinute) / 60.0}
}

// TokenBucket is a Redis-backed Limiter. Keys without a configured bucket are
// not limited, and Redis failures let the call through.
type TokenBucket struct {
	rdb     redis.Scripter
	script  *redis.Script
	mu      sync.RWMutex
	buckets map[string]BucketConfig
	now     func() time.Time
}

// NewTokenBucket returns nil when rdb is nil.
func NewTokenBucket(rdb redis.Scripter, buckets map[string]BucketConfig) *TokenBucket {
	if rdb == nil {
		return nil
	}
	if buckets == nil {
		buckets = map[string]BucketConfig{}
	}
	return &TokenBucket{rdb: rdb, script: redis.NewScript(tokenBucketScript), buckets: buckets, now: time.Now}
}

const tokenBucketScript = `
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refill_rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local cost = tonumber(ARGV[4])

local tokens = capacity
local last_refill = now
local data = redis.call("HMGET", key, "tokens", "last_refill")
if data[1] then tokens = tonumber(data[1]) end
if data[2] then last_refill = tonumber(data[2]) end

local delta = math.max(0, now - last_refill)
tokens = math.min(capacity, tokens + delta * refill_rate)

local allowed = 0
local retry_after = 0
if tokens >= cost then
  tokens = tokens - cost
  allowed = 1
elseif refill_rate > 0 then
  retry_after = (cost - tokens) / refill_rate
end

redis.call("HSET", key, "tokens", tostring(tokens), "last_refill", tostring(now))
redis.call("EXPIRE", key, math.ceil(capacity / math.max(refill_rate, 0.001)) + 60)
return { allowed, tostring(retry_after) }
`

// SetBucket installs or replaces the bucket for key.
func (l *TokenBucket) SetBucket(key string, cfg BucketConfig) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buckets[key] = cfg
}

// Allow consumes cost tokens from key's bucket when available.
func (l *TokenBucket) Allow(ctx context.Context, key string, cost int64) (bool, time.Duration, error) {
	if l == nil {
		return true, 0, nil
	}
	l.mu.RLock()
	cfg, ok := l.buckets[key]
	l.mu.RUnlock()
	if !ok || cfg.Capacity <= 0 || cfg.RefillRate <= 0 {
		return true, 0, nil
	}
	if cost <= 0 {
		cost = 1
	}
	nowSec := float64(l.now().UnixNano()) / 1e9

	res, err := l.script.Run(ctx, l.rdb, []string{"rate:" + key}, cfg.Capacity, cfg.RefillRate, nowSec, cost).Result()
	if err != nil {
		slog.Error("token bucket script error", slog.String("key", key), slog.Any("error", err))
		return true, 0, err
	}
	vals, ok := res.([]interface{})
	if !ok || len(vals) < 2 {
		slog.Error("token bucket unexpected result", slog.String("key", key), slog.Any("result", res))
		return true, 0, nil
	}
	allowed := toInt64(vals[0]) == 1
	retry := toFloat64(vals[1])
	if math.IsNaN(retry) || retry < 0 {
		retry = 0
	}
	return allowed, time.Duration(retry * float64(time.Second)), nil
}

func toInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	default:
		return 0
	}
}

func toFloat64(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	case string:
		var f float64
		if _, err := fmt.Sscan(t, &f); err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}
