package cache

import (
	"context"
	"fmt"
	"time"

	"library-service/pkg/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRedisClient connects to Redis. It returns a nil client when no address is
// configured, which turns caching off.
func NewRedisClient(config utils.RedisConfig, log *zap.Logger) (*redis.Client, error) {
	if config.Addr == "" {
		log.Warn("REDIS_ADDR is not set, session caching is disabled")
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", config.Addr, err)
	}

	log.Info("Connected to Redis", zap.String("addr", config.Addr))
	return client, nil
}
