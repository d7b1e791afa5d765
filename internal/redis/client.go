// Package redis wraps the go-redis client and pools single-connection
// clients so the number of open database connections stays fixed.
package redis

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/KirkDiggler/dogstory-api/internal/errors"
	"github.com/KirkDiggler/dogstory-api/internal/pkg/connpool"
)

// Options configures Redis client behavior
type Options struct {
	PoolSize        int
	MinIdleConns    int
	ConnMaxIdleTime time.Duration
	MaxRetries      int
	UseTLS          bool
}

// NewClient creates a Redis client for a single instance
func NewClient(endpoint string, opts *Options) (Client, error) {
	if endpoint == "" {
		return nil, errors.Configuration("redis: endpoint is required")
	}

	if opts == nil {
		opts = &Options{}
	}

	redisOpts := &redis.Options{
		Addr:            endpoint,
		MinIdleConns:    opts.MinIdleConns,
		PoolSize:        opts.PoolSize,
		ConnMaxIdleTime: opts.ConnMaxIdleTime,
		MaxRetries:      opts.MaxRetries,
	}

	if opts.UseTLS {
		redisOpts.TLSConfig = &tls.Config{
			InsecureSkipVerify: true, // #nosec G402 // For self-signed certs
		}
	}

	return redis.NewClient(redisOpts), nil
}

// PoolConfig describes a fixed pool of Redis connections
type PoolConfig struct {
	Endpoint       string
	Size           int
	AcquireTimeout time.Duration
	UseTLS         bool
}

// Validate ensures the pool can be opened
func (c *PoolConfig) Validate() error {
	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("Endpoint", c.Endpoint, vb)
	if c.Size <= 0 {
		vb.Field("Size", "must be positive")
	}
	return vb.Build()
}

// NewPool opens cfg.Size clients, each limited to one connection, and
// pings every one of them before handing the pool out.
func NewPool(ctx context.Context, cfg *PoolConfig) (*connpool.Pool[Client], error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return connpool.New(ctx, &connpool.Config[Client]{
		Size:           cfg.Size,
		AcquireTimeout: cfg.AcquireTimeout,
		Open: func(ctx context.Context) (Client, error) {
			client, err := NewClient(cfg.Endpoint, &Options{
				PoolSize:     1,
				MinIdleConns: 1,
				UseTLS:       cfg.UseTLS,
			})
			if err != nil {
				return nil, err
			}
			if err := client.Ping(ctx).Err(); err != nil {
				_ = client.Close()
				return nil, err
			}
			return client, nil
		},
		Close: func(c Client) error {
			return c.Close()
		},
	})
}
