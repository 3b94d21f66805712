package config

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// InitRedis - nil, nil kalau REDIS_ADDR tidak diset (idempotency pakai memory)
func InitRedis(ctx context.Context, s Settings) (*redis.Client, error) {
	if s.RedisAddr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     s.RedisAddr,
		Password: s.RedisPassword,
		DB:       s.RedisDB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis tidak nyambung: %w", err)
	}
	return client, nil
}
