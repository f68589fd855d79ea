package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"

	"github.com/flywheel-ml/flywheel/internal/breaker"
	"github.com/flywheel-ml/flywheel/internal/cache"
)

func newTestClient(t *testing.T) *cache.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return cache.NewClientFromRedisClient(rdb, "flywheel-test")
}

func TestSeenFeatureHashDedupes(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	seen, err := c.SeenFeatureHash(ctx, "abc123", time.Minute)
	require.NoError(t, err)
	require.False(t, seen)

	seen, err = c.SeenFeatureHash(ctx, "abc123", time.Minute)
	require.NoError(t, err)
	require.True(t, seen)
}

func TestBreakerStateRoundTrip(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	_, found, err := c.SharedBreakerState(ctx, "model-a")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, c.PublishBreakerState(ctx, "model-a", breaker.StateOpen, time.Minute))

	state, found, err := c.SharedBreakerState(ctx, "model-a")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "open", state)
}
