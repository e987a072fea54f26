package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	redisClient *redis.Client
	cacheTTL    time.Duration
)

// InitCache connects the optional Redis snapshot cache. An empty addr leaves
// caching disabled; the engine works the same, every snapshot request just
// recomputes.
func InitCache(addr, password string, ttl time.Duration) error {
	if addr == "" {
		slog.Info("Snapshot cache disabled, REDIS_ADDR not set")
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	redisClient = rdb
	cacheTTL = ttl
	slog.Info("Snapshot cache connected", "addr", addr, "ttl", ttl)
	return nil
}

// cachedSnapshot returns the cached snapshot JSON for the key, if any
func cachedSnapshot(ctx context.Context, key string) ([]byte, bool) {
	if redisClient == nil {
		return nil, false
	}
	data, err := redisClient.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("Snapshot cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	return data, true
}

// storeSnapshot caches a computed snapshot; failures are logged, never fatal
func storeSnapshot(ctx context.Context, key string, v any) {
	if redisClient == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		slog.Warn("Snapshot cache marshal failed", "key", key, "error", err)
		return
	}
	if err := redisClient.Set(ctx, key, data, cacheTTL).Err(); err != nil {
		slog.Warn("Snapshot cache write failed", "key", key, "error", err)
	}
}

// InvalidateSnapshots drops every cached snapshot. Called after any ingest
// that changes the inputs so a stale tree or matrix is never served.
func InvalidateSnapshots(ctx context.Context) {
	if redisClient == nil {
		return
	}
	iter := redisClient.Scan(ctx, 0, "snapshot:*", 0).Iterator()
	for iter.Next(ctx) {
		if err := redisClient.Del(ctx, iter.Val()).Err(); err != nil {
			slog.Warn("Snapshot cache invalidation failed", "key", iter.Val(), "error", err)
		}
	}
	if err := iter.Err(); err != nil {
		slog.Warn("Snapshot cache scan failed", "error", err)
	}
}
