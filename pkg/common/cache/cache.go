package cache

import (
	"context"
	"time"
)

// CacheEngine defines the standard interface for remote caching operations.
type CacheEngine interface {
	// Get returns ErrCacheMiss when key is absent.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteBulk(ctx context.Context, keys []string) error
	InvalidatePrefix(ctx context.Context, prefix string) error
	Close()
}
