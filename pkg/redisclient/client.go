package redisclient

import (
	"context"

	"github.com/go-redis/redis/v8"

	"github.com/minh10102003/KLTN-007-FloodWatch-BE/internal/config"
)

// Client is an alias so callers do not import go-redis directly.
type Client = redis.Client

// NewRedisClient builds a client from config.
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Ping checks connectivity.
func Ping(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}

// Close closes the client.
func Close(client *redis.Client) error {
	return client.Close()
}
