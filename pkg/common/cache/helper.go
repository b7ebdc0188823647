package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
)

// ErrCacheMiss reports that a key holds no value.
var ErrCacheMiss = errors.New("cache miss")

// HandleHitCache loads key into model. It returns ErrCacheMiss when the key is absent.
func HandleHitCache(ctx context.Context, model any, c CacheEngine, key string) error {
	byteData, exists, err := c.Get(ctx, key)
	if err != nil && !errors.Is(err, ErrCacheMiss) {
		return pkgerrors.Wrap(err, "failed to read cache")
	}
	if !exists {
		return ErrCacheMiss
	}
	if err := json.Unmarshal(byteData, model); err != nil {
		return pkgerrors.Wrap(err, "failed to unmarshal cache")
	}
	return nil
}

// HandleSetCache handles cache set
func HandleSetCache(ctx context.Context, model any, c CacheEngine, key string, ttl time.Duration) error {
	return c.Set(ctx, key, model, ttl)
}

// HandleUpdateCache refreshes key only if it is already cached.
func HandleUpdateCache(ctx context.Context, model any, c CacheEngine, key string, ttl time.Duration) {
	if _, exists, err := c.Get(ctx, key); err == nil && exists {
		_ = HandleSetCache(ctx, model, c, key, ttl)
	}
}

// HandleDeleteCache handles cache delete
func HandleDeleteCache(ctx context.Context, c CacheEngine, key string) error {
	return c.Delete(ctx, key)
}
