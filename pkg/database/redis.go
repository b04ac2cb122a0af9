package database

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/richipal/tmsagent/pkg/config"
)

// NewRedisClient creates a Redis client for session persistence.
// Returns nil (without error) when no Redis host is configured; callers
// fall back to in-memory session storage in that case.
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	if cfg.Host == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}
