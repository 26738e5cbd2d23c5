// Package redisstore provides the Redis client shared by the Blackboard,
// Status Store, and Query Cache. It mirrors the connect/ping/health shape
// tarsy uses for its Postgres client, adapted to a single flat key-value
// backend instead of a relational one.
package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tarsy-labs/analysis-orchestrator/pkg/config"
)

// Client wraps a go-redis connection.
type Client struct {
	*redis.Client
}

// New creates a new Redis client from config and verifies connectivity.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
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

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &Client{Client: rdb}, nil
}

// NewFromRedisClient wraps an existing *redis.Client (used in tests with miniredis).
func NewFromRedisClient(rdb *redis.Client) *Client {
	return &Client{Client: rdb}
}

// HealthStatus reports Redis connectivity for the /health endpoint.
type HealthStatus struct {
	Status       string        `json:"status"`
	ResponseTime time.Duration `json:"response_time_ns"`
}

// Health pings Redis and reports latency.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	start := time.Now()
	if err := c.Ping(ctx).Err(); err != nil {
		return &HealthStatus{Status: "unhealthy", ResponseTime: time.Since(start)}, err
	}
	return &HealthStatus{Status: "healthy", ResponseTime: time.Since(start)}, nil
}
