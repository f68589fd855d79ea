// Package cache provides the cross-runner shared state the control plane
// needs beyond a single process: a feature-fingerprint dedup cache for
// the feedback-join stage, and Publish/Shared accessors for a per-model
// circuit-breaker state key. internal/breaker.Breaker neither publishes
// to nor reads that key; each process's breakers trip independently.
// Grounded on the teacher's
// core/redis_client.go connection style and
// pcraw4d-business-verification's redis_cache.go key-prefix convention.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/flywheel-ml/flywheel/internal/breaker"
	"github.com/flywheel-ml/flywheel/internal/domain"
)

// Client wraps a go-redis client with the key conventions this package
// uses; it is safe for concurrent use (the underlying client pools
// connections).
type Client struct {
	rdb       *redis.Client
	keyPrefix string
}

// NewClient connects to the Redis instance at url (e.g.
// "redis://localhost:6379").
func NewClient(url, keyPrefix string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, domain.NewError("cache.NewClient", "config", fmt.Errorf("%w: %v", domain.ErrConfig, err))
	}
	return &Client{rdb: redis.NewClient(opts), keyPrefix: keyPrefix}, nil
}

// NewClientFromRedisClient wraps an already-constructed *redis.Client,
// used by tests against a miniredis instance.
func NewClientFromRedisClient(rdb *redis.Client, keyPrefix string) *Client {
	return &Client{rdb: rdb, keyPrefix: keyPrefix}
}

func (c *Client) Close() error { return c.rdb.Close() }

func (c *Client) key(parts ...string) string {
	key := c.keyPrefix
	for _, p := range parts {
		key += ":" + p
	}
	return key
}

// SeenFeatureHash records a prediction's features-hash fingerprint and
// reports whether it had been seen before within ttl — used by the
// feedback-join stage to avoid emitting duplicate labeled examples when
// the same feedback event is delivered more than once.
func (c *Client) SeenFeatureHash(ctx context.Context, hash string, ttl time.Duration) (alreadySeen bool, err error) {
	key := c.key("fphash", hash)
	ok, err := c.rdb.SetNX(ctx, key, 1, ttl).Result()
	if err != nil {
		return false, domain.NewError("cache.SeenFeatureHash", "io", fmt.Errorf("%w: %v", domain.ErrIO, err))
	}
	return !ok, nil
}

// PublishBreakerState writes a breaker state for modelID to Redis with
// the given ttl. Nothing in internal/breaker calls it, so a breaker's
// transitions are not published automatically.
func (c *Client) PublishBreakerState(ctx context.Context, modelID string, state breaker.State, ttl time.Duration) error {
	key := c.key("breaker", modelID)
	if err := c.rdb.Set(ctx, key, state.String(), ttl).Err(); err != nil {
		return domain.NewError("cache.PublishBreakerState", "io", fmt.Errorf("%w: %v", domain.ErrIO, err))
	}
	return nil
}

// SharedBreakerState reads the last-published breaker state for modelID.
// Returns ("", false, nil) if no runner has published a state yet.
func (c *Client) SharedBreakerState(ctx context.Context, modelID string) (string, bool, error) {
	key := c.key("breaker", modelID)
	val, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, domain.NewError("cache.SharedBreakerState", "io", fmt.Errorf("%w: %v", domain.ErrIO, err))
	}
	return val, true, nil
}
