package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/ManuelReschke/freelancedesk/internal/pkg/env"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var client *redis.Client

// SetupCache initializes the connection to the redis compatible cache server.
// A failed ping is logged; callers treat the cache as optional.
func SetupCache(logger *zap.Logger) *redis.Client {
	host := env.GetEnv("CACHE_HOST", "localhost")
	port := env.GetEnv("CACHE_PORT", "6379")

	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("could not connect to cache", zap.String("addr", client.Options().Addr), zap.Error(err))
	} else {
		logger.Info("connected to cache", zap.String("addr", client.Options().Addr))
	}
	return client
}

// GetClient returns the Redis client instance
func GetClient() *redis.Client {
	if client == nil {
		SetupCache(zap.NewNop())
	}
	return client
}
