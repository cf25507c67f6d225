package storage

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/Sheulydsp/kanban-dashboard/domain"
)

// Redis keeps the snapshot under a single key, mirroring the one named
// local-storage entry of a browser profile.
type Redis struct {
	client *redis.Client
	key    string
}

func NewRedis(client *redis.Client, key string) *Redis {
	if client == nil {
		panic("storage.NewRedis: client is nil")
	}
	if key == "" {
		key = "tasks"
	}
	return &Redis{client: client, key: key}
}

func (r *Redis) Load(ctx context.Context) ([]domain.Task, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []domain.Task{}, nil
		}
		return nil, err
	}
	return decodeSnapshot(data)
}

func (r *Redis) Save(ctx context.Context, tasks []domain.Task) error {
	data, err := encodeSnapshot(tasks)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key, data, 0).Err()
}
