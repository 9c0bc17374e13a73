// Package storage persists arbitrary JSON-serializable documents under a
// string key: game saves, the player registry, and per-species Q-tables.
package storage

import "context"

// Store is a small key-value document store abstraction. Implementations
// are swappable: FileStore for single-node deployments, RedisStore for
// shared/clustered ones.
type Store interface {
	// Save serializes value as JSON and persists it under key.
	Save(ctx context.Context, key string, value any) error
	// Load deserializes the document stored under key into dest. It
	// returns ErrNotFound if no document exists for key.
	Load(ctx context.Context, key string, dest any) error
	// Delete removes the document stored under key. It is not an error
	// to delete a key that does not exist.
	Delete(ctx context.Context, key string) error
	// List returns every key currently stored under prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// ErrNotFound is returned by Load when key has no document.
type ErrNotFound struct {
	Key string
}

func (e *ErrNotFound) Error() string {
	return "storage: no document for key " + e.Key
}
