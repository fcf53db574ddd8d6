// Package redis connects the shared migration lock to Redis.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"fedcore/internal/platform/config"
	"fedcore/pkg/platform/sentinel"
)

// Client is the connected lock backend. It satisfies redis.UniversalClient
// so the lock package never sees the concrete client type.
type Client struct {
	redis.UniversalClient
}

// Options translates cfg into go-redis options.
func Options(cfg config.RedisConfig) (*redis.Options, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.MinIdleConns > 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return opts, nil
}

// New connects and pings Redis. It returns nil, nil when no URL is
// configured; callers then fall back to the in-process lock.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	opts, err := Options(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, errors.Join(sentinel.ErrUnavailable, err))
	}
	return &Client{UniversalClient: client}, nil
}

// Health pings the server.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}
