package ratelimiter

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBucket(t *testing.T) (*TokenBucket, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewTokenBucket(rdb, nil), mr
}

func TestNilLimiterAllows(t *testing.T) {
	var l *TokenBucket
	allowed, retry, err := l.Allow(context.Background(), "any", 1)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Zero(t, retry)
	assert.Nil(t, NewTokenBucket(nil, nil))
}

func TestUnknownKeyAllows(t *testing.T) {
	l, _ := newTestBucket(t)
	allowed, _, err := l.Allow(context.Background(), "scoring:openai", 1)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestExhaustsAndRefills(t *testing.T) {
	l, _ := newTestBucket(t)
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }
	l.SetBucket("scoring:openai", BucketConfig{Capacity: 2, RefillRate: 1})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, _, err := l.Allow(ctx, "scoring:openai", 1)
		require.NoError(t, err)
		assert.True(t, allowed, "call %d", i)
	}
	allowed, retry, err := l.Allow(ctx, "scoring:openai", 1)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.InDelta(t, time.Second, retry, float64(10*time.Millisecond))

	now = now.Add(2 * time.Second)
	allowed, _, err = l.Allow(ctx, "scoring:openai", 1)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisDownFailsOpen(t *testing.T) {
	l, mr := newTestBucket(t)
	l.SetBucket("k", PerMinute(60))
	mr.Close()
	allowed, _, err := l.Allow(context.Background(), "k", 1)
	assert.Error(t, err)
	assert.True(t, allowed)
}

func TestPerMinute(t *testing.T) {
	assert.Equal(t, BucketConfig{Capacity: 30, RefillRate: 0.5}, PerMinute(30))
	assert.Equal(t, BucketConfig{}, PerMinute(0))
}
