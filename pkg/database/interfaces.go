package database

import (
	"context"
)

// Repository defines the common interface for document repositories.
// T is the stored shape, ID its identifier and F the filter description
// understood by the backend.
type Repository[T any, ID any, F any] interface {
	Get(ctx context.Context, id ID) (*T, error)
	FirstOrDefault(ctx context.Context, filter F) (*T, error)
	FindAll(ctx context.Context, filter F) ([]*T, error)
	Count(ctx context.Context, filter F) (int64, error)

	Save(ctx context.Context, entity *T) (ID, error)
	UpdateField(ctx context.Context, filter F, field string, value any) (*T, error)
	Update(ctx context.Context, entity *T, fieldsToPreserve ...string) (*T, error)
	Delete(ctx context.Context, id ID) error
	DeleteBulk(ctx context.Context, filter F) (int64, error)

	BulkInsert(ctx context.Context, entities []*T, opts ...BulkOption) error
	BulkUpsert(ctx context.Context, entities []*T) error

	DropCollection(ctx context.Context) error
}

// BulkOptions controls batch inserts.
type BulkOptions struct {
	// Ordered stops the batch at the first failing entry.
	Ordered bool
}

// BulkOption configures BulkOptions.
type BulkOption func(*BulkOptions)

// Ordered requests stop-on-first-error execution. This is the default.
func Ordered() BulkOption {
	return func(o *BulkOptions) { o.Ordered = true }
}

// Unordered lets every entry of the batch be attempted regardless of failures.
func Unordered() BulkOption {
	return func(o *BulkOptions) { o.Ordered = false }
}

// ApplyBulkOptions resolves opts on top of the defaults.
func ApplyBulkOptions(opts ...BulkOption) BulkOptions {
	o := BulkOptions{Ordered: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
