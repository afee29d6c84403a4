// Package redis connects the snapshot cache and the process manager's
// correlation store to Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tavola/internal/platform/config"
)

// Client is a go-redis client that has answered a ping.
type Client struct {
	*redis.Client
}

// New connects using cfg. Callers decide whether Redis is configured at all;
// an empty URL is an error here.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis URL is empty")
	}
	opts, err := options(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Client{Client: client}, nil
}

// options overlays the non-zero pool settings on the URL's options.
func options(cfg config.RedisConfig) (*redis.Options, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.MinIdleConns > 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	for dst, src := range map[*time.Duration]time.Duration{
		&opts.DialTimeout:  cfg.DialTimeout,
		&opts.ReadTimeout:  cfg.ReadTimeout,
		&opts.WriteTimeout: cfg.WriteTimeout,
	} {
		if src > 0 {
			*dst = src
		}
	}
	return opts, nil
}

// Health pings the server.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}
