// Package testutils provides helpers shared by tests, mainly in-memory Redis
package testutils

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/KirkDiggler/dogstory-api/internal/pkg/connpool"
	"github.com/KirkDiggler/dogstory-api/internal/redis"
)

// CreateTestRedisClient creates an in-memory Redis client for testing
func CreateTestRedisClient(t *testing.T) (redis.Client, func()) {
	mr, err := miniredis.Run()
	require.NoError(t, err, "failed to create miniredis")

	client, err := redis.NewClient(mr.Addr(), nil)
	require.NoError(t, err, "failed to create redis client")

	cleanup := func() {
		_ = client.Close()
		mr.Close()
	}

	return client, cleanup
}

// CreateTestRedisPool starts miniredis and opens a fixed pool of clients against it.
// The miniredis instance is returned so tests can inspect keys or simulate outages.
func CreateTestRedisPool(t *testing.T, size int) (*connpool.Pool[redis.Client], *miniredis.Miniredis, func()) {
	mr, err := miniredis.Run()
	require.NoError(t, err, "failed to create miniredis")

	pool, err := redis.NewPool(context.Background(), &redis.PoolConfig{
		Endpoint:       mr.Addr(),
		Size:           size,
		AcquireTimeout: time.Second,
	})
	require.NoError(t, err, "failed to create redis pool")

	cleanup := func() {
		_ = pool.Close()
		mr.Close()
	}

	return pool, mr, cleanup
}
