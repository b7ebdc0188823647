package mongodb

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Query is a composable read over one collection.
// Builder methods modify and return the same Query; build a new one per
// goroutine.
type Query[T any] struct {
	col        *mongo.Collection
	fields     *fieldMap
	toWire     idConverter
	decode     func(bson.Raw) (*T, error)
	filter     Filter
	sort       bson.D
	projection bson.D
	skip       int64
	limit      int64
	err        error
}

// Where restricts the query to documents matching f. Repeated calls are combined with And.
func (q *Query[T]) Where(f Filter) *Query[T] {
	if q.filter.IsAll() {
		q.filter = f
	} else if !f.IsAll() {
		q.filter = And(q.filter, f)
	}
	return q
}

// Sort orders results by field ascending.
func (q *Query[T]) Sort(field string) *Query[T] {
	return q.addSort(field, 1)
}

// SortDesc orders results by field descending.
func (q *Query[T]) SortDesc(field string) *Query[T] {
	return q.addSort(field, -1)
}

func (q *Query[T]) addSort(field string, dir int) *Query[T] {
	key, err := q.fields.resolve(field)
	if err != nil {
		q.err = errors.Join(q.err, err)
		return q
	}
	q.sort = append(q.sort, bson.E{Key: key, Value: dir})
	return q
}

// Skip skips the first n results.
func (q *Query[T]) Skip(n int64) *Query[T] {
	q.skip = n
	return q
}

// Limit caps the number of results. Zero means no limit.
func (q *Query[T]) Limit(n int64) *Query[T] {
	q.limit = n
	return q
}

// Project restricts the returned fields. Fields left out decode as zero values.
func (q *Query[T]) Project(fields ...string) *Query[T] {
	for _, field := range fields {
		key, err := q.fields.resolve(field)
		if err != nil {
			q.err = errors.Join(q.err, err)
			continue
		}
		q.projection = append(q.projection, bson.E{Key: key, Value: 1})
	}
	return q
}

// Filter returns the driver filter document the query runs with.
func (q *Query[T]) Filter() (bson.D, error) {
	if q.err != nil {
		return nil, q.err
	}
	return q.filter.build(q.fields, q.toWire)
}

// All returns every matching document.
func (q *Query[T]) All(ctx context.Context) ([]*T, error) {
	results := make([]*T, 0)
	err := q.Each(ctx, func(item *T) error {
		results = append(results, item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Each streams matching documents to fn, stopping at the first error.
func (q *Query[T]) Each(ctx context.Context, fn func(*T) error) error {
	filter, err := q.Filter()
	if err != nil {
		return err
	}

	opts := options.Find()
	if len(q.sort) > 0 {
		opts.SetSort(q.sort)
	}
	if len(q.projection) > 0 {
		opts.SetProjection(q.projection)
	}
	if q.skip > 0 {
		opts.SetSkip(q.skip)
	}
	if q.limit > 0 {
		opts.SetLimit(q.limit)
	}

	cursor, err := q.col.Find(ctx, filter, opts)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		item, err := q.decode(cursor.Current)
		if err != nil {
			return err
		}
		if err := fn(item); err != nil {
			return err
		}
	}
	return cursor.Err()
}

// First returns the first matching document, or nil when nothing matches.
func (q *Query[T]) First(ctx context.Context) (*T, error) {
	filter, err := q.Filter()
	if err != nil {
		return nil, err
	}

	opts := options.FindOne()
	if len(q.sort) > 0 {
		opts.SetSort(q.sort)
	}
	if len(q.projection) > 0 {
		opts.SetProjection(q.projection)
	}
	if q.skip > 0 {
		opts.SetSkip(q.skip)
	}

	raw, err := q.col.FindOne(ctx, filter, opts).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return q.decode(raw)
}

// Count returns the number of matching documents, honoring Skip and Limit.
func (q *Query[T]) Count(ctx context.Context) (int64, error) {
	filter, err := q.Filter()
	if err != nil {
		return 0, err
	}

	opts := options.Count()
	if q.skip > 0 {
		opts.SetSkip(q.skip)
	}
	if q.limit > 0 {
		opts.SetLimit(q.limit)
	}
	return q.col.CountDocuments(ctx, filter, opts)
}
