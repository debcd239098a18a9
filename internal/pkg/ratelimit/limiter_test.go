package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, perMinute int) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	l := NewLimiter(client, perMinute)
	fixed := time.Date(2020, 5, 4, 10, 15, 20, 0, time.UTC)
	l.now = func() time.Time { return fixed }
	return l, mr
}

func TestAllow_WithinLimit(t *testing.T) {
	l, _ := newTestLimiter(t, 3)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		d, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, int64(i), d.Used)
		assert.Equal(t, 3, d.Limit)
	}
}

func TestAllow_DeniesOverLimit(t *testing.T) {
	l, _ := newTestLimiter(t, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
	}

	d, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, int64(2), d.Used)
	assert.Equal(t, 40*time.Second, d.RetryAfter)

	// Denied calls do not consume the window
	used, err := l.Usage(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), used)
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(t, 1)
	ctx := context.Background()

	d, err := l.Allow(ctx, "a")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = l.Allow(ctx, "b")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestAllow_NewWindow(t *testing.T) {
	l, _ := newTestLimiter(t, 1)
	ctx := context.Background()

	_, err := l.Allow(ctx, "a")
	require.NoError(t, err)

	next := l.now().Add(time.Minute)
	l.now = func() time.Time { return next }

	d, err := l.Allow(ctx, "a")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestAllow_SetsExpiry(t *testing.T) {
	l, mr := newTestLimiter(t, 5)

	_, err := l.Allow(context.Background(), "a")
	require.NoError(t, err)

	key := windowKey("a", l.now())
	assert.Equal(t, 120*time.Second, mr.TTL(key))
}

func TestAllow_RedisDown(t *testing.T) {
	l, mr := newTestLimiter(t, 5)
	mr.Close()

	_, err := l.Allow(context.Background(), "a")
	assert.Error(t, err)
	assert.Error(t, l.Ping(context.Background()))
}

func TestUsage_Empty(t *testing.T) {
	l, _ := newTestLimiter(t, 5)
	used, err := l.Usage(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Zero(t, used)
	assert.NoError(t, l.Ping(context.Background()))
}

func TestNewLimiterFromURL(t *testing.T) {
	mr := miniredis.RunT(t)

	l, err := NewLimiterFromURL(context.Background(), "redis://"+mr.Addr()+"/0", 10)
	require.NoError(t, err)
	defer l.Close()

	d, err := l.Allow(context.Background(), "a")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	_, err = NewLimiterFromURL(context.Background(), "not a url", 10)
	assert.Error(t, err)
}
