package cache

import (
	"context"
	"time"
)

// Cache is the key-value surface the service needs from a remote cache.
type Cache interface {
	// Get returns "" with a nil error when the key does not exist.
	Get(ctx context.Context, key string) (string, error)

	// Set stores a value; a zero ttl never expires.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Del deletes one or more keys.
	Del(ctx context.Context, keys ...string) error

	Ping(ctx context.Context) error
	Close() error
}
