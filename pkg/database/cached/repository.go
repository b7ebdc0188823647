// Package cached puts a read-through cache in front of a document repository.
package cached

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/huynhanx03/go-mongorepo/pkg/common/cache"
	"github.com/huynhanx03/go-mongorepo/pkg/database"
	"github.com/huynhanx03/go-mongorepo/pkg/database/mongodb"
)

const defaultTTL = 5 * time.Minute

// Repository caches Get results of the wrapped repository.
//
// Writes addressed by identifier drop the cached entry after the write;
// writes addressed by filter drop every entry of the collection. A Get that
// races a write may still put the old document back until the TTL expires.
// Cache failures are logged and the call falls through to the database.
type Repository[T any, PT mongodb.EntityPtr[T, ID], ID comparable] struct {
	database.Repository[T, ID, mongodb.Filter]

	engine cache.CacheEngine
	prefix string
	ttl    time.Duration
	logger *zap.Logger
	group  singleflight.Group
}

// Option configures a Repository.
type Option func(*options)

type options struct {
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// WithPrefix sets the key prefix. Defaults to "mongorepo:{TypeName}".
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithTTL sets how long entries live. Non-positive values keep the default.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) { o.ttl = ttl }
}

// WithLogger sets the logger used for cache failures.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New wraps inner with engine.
func New[T any, PT mongodb.EntityPtr[T, ID], ID comparable](inner database.Repository[T, ID, mongodb.Filter], engine cache.CacheEngine, opts ...Option) *Repository[T, PT, ID] {
	o := options{
		prefix: "mongorepo:" + mongodb.TypeName[T](),
		ttl:    defaultTTL,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.ttl <= 0 {
		o.ttl = defaultTTL
	}

	return &Repository[T, PT, ID]{
		Repository: inner,
		engine:     engine,
		prefix:     o.prefix + ":",
		ttl:        o.ttl,
		logger:     o.logger.With(zap.String("cache_prefix", o.prefix)),
	}
}

func (r *Repository[T, PT, ID]) key(id ID) string {
	return fmt.Sprintf("%s%v", r.prefix, id)
}

// Get serves id from the cache, loading it from the database on a miss.
// Concurrent misses for the same id share one database read.
// Absent documents are not cached.
func (r *Repository[T, PT, ID]) Get(ctx context.Context, id ID) (*T, error) {
	key := r.key(id)

	var hit T
	err := cache.HandleHitCache(ctx, &hit, r.engine, key)
	if err == nil {
		return &hit, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		r.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		entity, err := r.Repository.Get(ctx, id)
		if err != nil || entity == nil {
			return entity, err
		}
		if err := cache.HandleSetCache(ctx, entity, r.engine, key, r.ttl); err != nil {
			r.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		}
		return entity, nil
	})
	if err != nil {
		return nil, err
	}

	entity := v.(*T)
	if entity == nil {
		return nil, nil
	}
	// callers sharing a load must not share the value
	out := *entity
	return &out, nil
}

// Save writes entity and drops its cache entry.
func (r *Repository[T, PT, ID]) Save(ctx context.Context, entity *T) (ID, error) {
	id, err := r.Repository.Save(ctx, entity)
	r.forget(ctx, PT(entity).GetID())
	return id, err
}

// UpdateField updates one document and drops its cache entry.
func (r *Repository[T, PT, ID]) UpdateField(ctx context.Context, filter mongodb.Filter, field string, value any) (*T, error) {
	result, err := r.Repository.UpdateField(ctx, filter, field, value)
	if result != nil {
		r.forget(ctx, PT(result).GetID())
	} else if err != nil {
		r.forgetAll(ctx)
	}
	return result, err
}

// Update replaces entity and drops its cache entry.
func (r *Repository[T, PT, ID]) Update(ctx context.Context, entity *T, fieldsToPreserve ...string) (*T, error) {
	result, err := r.Repository.Update(ctx, entity, fieldsToPreserve...)
	r.forget(ctx, PT(entity).GetID())
	return result, err
}

// Delete removes id and its cache entry.
func (r *Repository[T, PT, ID]) Delete(ctx context.Context, id ID) error {
	err := r.Repository.Delete(ctx, id)
	r.forget(ctx, id)
	return err
}

// DeleteBulk removes matching documents and drops the whole cache.
func (r *Repository[T, PT, ID]) DeleteBulk(ctx context.Context, filter mongodb.Filter) (int64, error) {
	n, err := r.Repository.DeleteBulk(ctx, filter)
	r.forgetAll(ctx)
	return n, err
}

// BulkUpsert writes entities and drops their cache entries.
func (r *Repository[T, PT, ID]) BulkUpsert(ctx context.Context, entities []*T) error {
	err := r.Repository.BulkUpsert(ctx, entities)
	r.forget(ctx, idsOf[T, PT, ID](entities)...)
	return err
}

// DropCollection drops the collection and the whole cache.
func (r *Repository[T, PT, ID]) DropCollection(ctx context.Context) error {
	err := r.Repository.DropCollection(ctx)
	r.forgetAll(ctx)
	return err
}

func (r *Repository[T, PT, ID]) forget(ctx context.Context, ids ...ID) {
	var zero ID
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != zero {
			keys = append(keys, r.key(id))
		}
	}
	if len(keys) == 0 {
		return
	}
	if err := r.engine.DeleteBulk(ctx, keys); err != nil {
		r.logger.Warn("cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

func (r *Repository[T, PT, ID]) forgetAll(ctx context.Context) {
	if err := r.engine.InvalidatePrefix(ctx, r.prefix); err != nil {
		r.logger.Warn("cache invalidation failed", zap.Error(err))
	}
}

func idsOf[T any, PT mongodb.EntityPtr[T, ID], ID comparable](entities []*T) []ID {
	ids := make([]ID, 0, len(entities))
	for _, e := range entities {
		ids = append(ids, PT(e).GetID())
	}
	return ids
}
