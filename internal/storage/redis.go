package storage

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists documents as JSON strings under key, backed by a
// shared Redis instance. Suited to multi-node deployments where species
// Q-tables and game saves must be visible across server processes.
type RedisStore struct {
	Client *redis.Client
	Prefix string
}

// NewRedisStore wraps an existing redis.Client. prefix namespaces every
// key this store touches (e.g. "dungeonai:") so it can share a Redis
// instance with unrelated services.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{Client: client, Prefix: prefix}
}

func (r *RedisStore) fullKey(key string) string {
	return r.Prefix + key
}

// Save serializes value as JSON and SETs it under key with no expiry.
func (r *RedisStore) Save(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.Client.Set(ctx, r.fullKey(key), data, 0).Err()
}

// Load GETs the document stored under key and unmarshals it into dest.
func (r *RedisStore) Load(ctx context.Context, key string, dest any) error {
	data, err := r.Client.Get(ctx, r.fullKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &ErrNotFound{Key: key}
		}
		return err
	}
	return json.Unmarshal(data, dest)
}

// Delete removes the document stored under key.
func (r *RedisStore) Delete(ctx context.Context, key string) error {
	return r.Client.Del(ctx, r.fullKey(key)).Err()
}

// List scans for every key under prefix, stripping the store's own prefix
// back off before returning them.
func (r *RedisStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := r.Client.Scan(ctx, 0, r.fullKey(prefix)+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val()[len(r.Prefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}
