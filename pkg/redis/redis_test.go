package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/movies/pkg/config"
)

type report struct {
	Min []int `json:"min"`
	Max []int `json:"max"`
}

func TestNew_Disabled(t *testing.T) {
	client, err := New(context.Background(), config.RedisConfig{Enabled: false})
	require.NoError(t, err)

	assert.False(t, client.Enabled())
	assert.NoError(t, client.Ping(context.Background()))
	assert.NoError(t, client.Close())
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(Disabled(), "test")
	cfg := RateLimitConfig{Key: "127.0.0.1", Limit: 5, Window: time.Second}

	allowed, remaining, err := limiter.Allow(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 5, remaining)
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(Disabled(), "test")
	ctx := context.Background()

	var result string
	found, err := cache.Get(ctx, "key", &result)
	require.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, cache.Set(ctx, "key", "value", time.Minute))
	assert.NoError(t, cache.Delete(ctx, "key"))
}

func TestCache_GetOrSetDisabledAlwaysCallsFn(t *testing.T) {
	cache := NewCache(Disabled(), "test")
	ctx := context.Background()

	calls := 0
	fn := func() (interface{}, error) {
		calls++
		return report{Min: []int{1}, Max: []int{13}}, nil
	}

	for i := 0; i < 2; i++ {
		var got report
		hit, err := cache.GetOrSet(ctx, "awards:intervals", &got, time.Minute, fn)
		require.NoError(t, err)
		assert.False(t, hit)
		assert.Equal(t, report{Min: []int{1}, Max: []int{13}}, got)
	}
	assert.Equal(t, 2, calls)
}

func TestCache_GetOrSetPropagatesFnError(t *testing.T) {
	cache := NewCache(Disabled(), "test")
	boom := errors.New("storage down")

	var got report
	_, err := cache.GetOrSet(context.Background(), "k", &got, time.Minute, func() (interface{}, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

// newTestClient connects to an in-process Redis
func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := New(context.Background(), config.RedisConfig{Host: mr.Host(), Port: mr.Port(), Enabled: true})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestCache_GetOrSetHitsAfterMiss(t *testing.T) {
	client, mr := newTestClient(t)
	cache := NewCache(client, "movies-test")
	ctx := context.Background()

	calls := 0
	fn := func() (interface{}, error) {
		calls++
		return report{Min: []int{1}, Max: []int{13}}, nil
	}

	var first, second report
	hit, err := cache.GetOrSet(ctx, "report", &first, time.Minute, fn)
	require.NoError(t, err)
	assert.False(t, hit)

	hit, err = cache.GetOrSet(ctx, "report", &second, time.Minute, fn)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
	assert.Equal(t, time.Minute, mr.TTL("movies-test:cache:report"))

	require.NoError(t, cache.Delete(ctx, "report"))
	assert.False(t, mr.Exists("movies-test:cache:report"))
}

func TestCache_GetCorruptValue(t *testing.T) {
	client, mr := newTestClient(t)
	cache := NewCache(client, "movies-test")
	require.NoError(t, mr.Set("movies-test:cache:report", "not json"))

	var got report
	_, err := cache.Get(context.Background(), "report", &got)
	assert.Error(t, err)

	calls := 0
	hit, err := cache.GetOrSet(context.Background(), "report", &got, time.Minute, func() (interface{}, error) {
		calls++
		return report{Min: []int{2}}, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []int{2}, got.Min)
}

func TestRateLimiter_SlidingWindow(t *testing.T) {
	client, _ := newTestClient(t)
	limiter := NewRateLimiter(client, "movies-test")
	cfg := RateLimitConfig{Key: "127.0.0.1", Limit: 3, Window: time.Minute}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, remaining, err := limiter.Allow(ctx, cfg)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, 2-i, remaining)
	}

	allowed, _, err := limiter.Allow(ctx, cfg)
	require.NoError(t, err)
	assert.False(t, allowed)
}
