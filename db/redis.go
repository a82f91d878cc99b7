package db

import (
	"context"
	"fmt"
	"time"

	"VTube/config"
	"VTube/logger"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis creates a Redis client and verifies it with a PING.
func ConnectRedis(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("[Redis] connected", logger.String("addr", cfg.RedisAddr()), logger.Int("db", cfg.RedisDB))
	return client, nil
}

// CheckRedis runs a set/get/delete round trip against the client.
func CheckRedis(ctx context.Context, client *redis.Client) error {
	const key = "vtube:healthcheck"
	const want = "Redis connection successful!"

	if err := client.Set(ctx, key, want, 5*time.Minute).Err(); err != nil {
		return fmt.Errorf("failed to set Redis key: %w", err)
	}
	val, err := client.Get(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to get Redis key: %w", err)
	}
	if val != want {
		return fmt.Errorf("unexpected value from Redis: got %s", val)
	}
	if err := client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete Redis key: %w", err)
	}
	return nil
}
