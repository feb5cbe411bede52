package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ctrl-sourav/SkyCast/internal/models"
)

// kv is the slice of *redis.Client the cache uses.
type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Redis shares cached dashboards between replicas.
type Redis struct {
	rdb    kv
	prefix string
	ttl    time.Duration
}

func NewRedis(rdb *redis.Client, prefix string, ttl time.Duration) *Redis {
	return &Redis{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (c *Redis) Get(ctx context.Context, key string) (models.Dashboard, bool) {
	raw, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("redis cache get failed", "key", key, "error", err)
		}
		return models.Dashboard{}, false
	}
	var d models.Dashboard
	if err := json.Unmarshal(raw, &d); err != nil {
		slog.Warn("redis cache entry corrupt", "key", key, "error", err)
		return models.Dashboard{}, false
	}
	return d, true
}

func (c *Redis) Set(ctx context.Context, key string, d models.Dashboard) {
	raw, err := json.Marshal(d)
	if err != nil {
		slog.Warn("redis cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.rdb.Set(ctx, c.prefix+key, raw, c.ttl).Err(); err != nil {
		slog.Warn("redis cache set failed", "key", key, "error", err)
	}
}

var (
	_ Cache = (*Memory)(nil)
	_ Cache = (*Redis)(nil)
)
