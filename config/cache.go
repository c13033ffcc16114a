package config

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/doshiMiraj/MGNREGA-Dashboard/cache"
)

const (
	// In-process cache durations
	localCacheDuration   = 24 * time.Hour
	localCleanupInterval = 48 * time.Hour
	redisConnectTimeout  = 5 * time.Second
)

// NewRedisClient builds a client from the URL, or from host and port.
func NewRedisClient(cfg RedisConfig) (*redis.Client, error) {
	if cfg.URL != "" {
		opts, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		return redis.NewClient(opts), nil
	}
	return redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DialTimeout:  redisConnectTimeout,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}), nil
}

// InitCache returns a Redis-backed cache when Redis is configured and
// answers a ping, and the in-process cache otherwise. The returned close
// function releases the Redis client.
func InitCache(ctx context.Context, cfg RedisConfig, logger *slog.Logger) (*cache.Cache, func() error) {
	noop := func() error { return nil }
	if !cfg.Enabled() {
		logger.Info("redis not configured, using in-memory cache")
		return cache.NewLocal(localCacheDuration, localCleanupInterval, logger), noop
	}

	client, err := NewRedisClient(cfg)
	if err != nil {
		logger.Warn("redis configuration rejected, using in-memory cache", "error", err)
		return cache.NewLocal(localCacheDuration, localCleanupInterval, logger), noop
	}

	ctx, cancel := context.WithTimeout(ctx, redisConnectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		logger.Warn("redis unreachable, using in-memory cache", "error", err)
		return cache.NewLocal(localCacheDuration, localCleanupInterval, logger), noop
	}

	logger.Info("connected to redis")
	return cache.NewRedis(client, logger), client.Close
}
