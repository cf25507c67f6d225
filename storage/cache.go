package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/Sheulydsp/kanban-dashboard/board"
	"github.com/Sheulydsp/kanban-dashboard/domain"
)

// Cache wraps a repository with a Redis read-through copy of the snapshot.
// Writes go to the base repository first and then evict the cached copy.
type Cache struct {
	base   board.Repository
	redis  *redis.Client
	key    string
	ttl    time.Duration
	logger *log.Logger
}

// NewCache creates a caching wrapper around base using the provided Redis
// client and TTL.
func NewCache(base board.Repository, client *redis.Client, key string, ttl time.Duration, logger *log.Logger) *Cache {
	if base == nil {
		panic("storage.NewCache: base repository is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Cache{base: base, redis: client, key: cacheKey(key), ttl: ttl, logger: logger}
}

func (c *Cache) Load(ctx context.Context) ([]domain.Task, error) {
	if tasks, ok := c.loadFromCache(ctx); ok {
		return tasks, nil
	}

	tasks, err := c.base.Load(ctx)
	if err != nil {
		return nil, err
	}

	c.store(ctx, tasks)
	return tasks, nil
}

func (c *Cache) Save(ctx context.Context, tasks []domain.Task) error {
	if err := c.base.Save(ctx, tasks); err != nil {
		return err
	}

	c.evict(ctx)
	return nil
}

func (c *Cache) loadFromCache(ctx context.Context) ([]domain.Task, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, c.key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			// On redis errors fall back to the backing repository without failing.
			c.logger.WithError(err).Warn("tasks cache read failed")
			_ = c.redis.Del(ctx, c.key).Err()
		}
		return nil, false
	}
	tasks, err := decodeSnapshot(data)
	if err != nil {
		c.logger.WithError(err).Warn("discarding unreadable tasks cache entry")
		_ = c.redis.Del(ctx, c.key).Err()
		return nil, false
	}
	return tasks, true
}

func (c *Cache) store(ctx context.Context, tasks []domain.Task) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := encodeSnapshot(tasks)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, c.key, data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).Warn("failed to store tasks cache entry")
	}
}

func (c *Cache) evict(ctx context.Context) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Del(ctx, c.key).Err(); err != nil {
		c.logger.WithError(err).Warn("failed to evict tasks cache entry")
	}
}

func cacheKey(key string) string {
	return "cache:" + key
}
