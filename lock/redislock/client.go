// Package redislock implements lock.DistributedLock on top of Redis,
// adapted from the Txova platform's redis.Locker (see
// _examples/Dorico-Dynamics-txova-go-db/redis/lock.go): SETNX for
// acquisition, a Lua script for atomic ownership-checked release, and a
// blocking retry loop inside Locker.Lock to satisfy the Lock(ctx, expire)
// contract's "blocks up to expire" semantics.
package redislock

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Default client tuning, mirroring txova-go-db/redis.Client defaults.
const (
	DefaultPoolSize     = 10
	DefaultMinIdleConns = 2
	DefaultDialTimeout  = 5 * time.Second
	DefaultReadTimeout  = 3 * time.Second
	DefaultWriteTimeout = 3 * time.Second
)

// ClientConfig configures the underlying Redis connection.
type ClientConfig struct {
	Address      string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Address:      "localhost:6379",
		PoolSize:     DefaultPoolSize,
		MinIdleConns: DefaultMinIdleConns,
		DialTimeout:  DefaultDialTimeout,
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
	}
}

// Client wraps a go-redis client for use by Locker.
type Client struct {
	rdb    redis.UniversalClient
	logger *slog.Logger
}

// NewClient creates a new Client from a ClientConfig.
func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = DefaultPoolSize
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	return &Client{rdb: rdb, logger: logger}
}

// NewClientFromUniversal wraps an already-constructed go-redis
// UniversalClient (e.g. a cluster or sentinel client, or a miniredis-backed
// client in tests).
func NewClientFromUniversal(rdb redis.UniversalClient, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{rdb: rdb, logger: logger}
}

// Ping checks connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return FromRedisError(err)
	}
	return nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}
