// Package cache is a two-tier JSON cache: Redis when configured and reachable,
// an in-process expiring map otherwise.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/campfolio/service/internal/logger"
)

// Cache reads and writes JSON values. A nil Redis client keeps everything in memory.
type Cache struct {
	rdb *goredis.Client
	mem *memoryStore
	log *logger.Logger
}

// New creates a Cache over rdb, which may be nil.
func New(rdb *goredis.Client, log *logger.Logger) *Cache {
	return &Cache{rdb: rdb, mem: newMemoryStore(), log: log.With("component", "cache")}
}

// Connect dials Redis and pings it. Callers treat an error as "run without Redis".
func Connect(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	if addr == "" {
		return nil, errors.New("redis address not configured")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// Get decodes the value at key into dest. It reports false on a miss.
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	raw, ok := c.getRaw(ctx, key)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode cached %q: %w", key, err)
	}
	return true, nil
}

// Set stores v at key for ttl.
func (c *Cache) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	if c.rdb != nil {
		err := c.rdb.Set(ctx, key, raw, ttl).Err()
		if err == nil {
			return nil
		}
		c.log.Warn("redis set failed, using memory", "key", key, "error", err)
	}
	c.mem.set(key, raw, ttl)
	return nil
}

// Delete removes keys from both tiers.
func (c *Cache) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if c.rdb != nil {
		if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
			c.log.Warn("redis delete failed", "keys", keys, "error", err)
		}
	}
	for _, k := range keys {
		c.mem.delete(k)
	}
}

func (c *Cache) getRaw(ctx context.Context, key string) ([]byte, bool) {
	if c.rdb != nil {
		raw, err := c.rdb.Get(ctx, key).Bytes()
		if err == nil {
			return raw, true
		}
		if !errors.Is(err, goredis.Nil) {
			c.log.Warn("redis get failed, using memory", "key", key, "error", err)
		}
	}
	return c.mem.get(key)
}

// GetOrLoad returns the cached value at key, or calls load and caches its result.
// A load error is returned as is and nothing is cached.
func GetOrLoad[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var v T
	if ok, err := c.Get(ctx, key, &v); err == nil && ok {
		return v, nil
	}
	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	if err := c.Set(ctx, key, v, ttl); err != nil {
		c.log.Warn("cache set failed", "key", key, "error", err)
	}
	return v, nil
}
