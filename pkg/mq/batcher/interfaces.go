package batcher

import "context"

// Consumer is the interface that must be implemented by users of the Batcher.
// It is responsible for processing a batch of items.
type Consumer[T any] interface {
	// Consume processes a batch of items. The batch is owned by the consumer.
	// It is called outside the batcher's lock with the pushing caller's ctx.
	Consume(ctx context.Context, batch []T) error
}

// ConsumerFunc adapts a function to Consumer.
type ConsumerFunc[T any] func(ctx context.Context, batch []T) error

// Consume calls f.
func (f ConsumerFunc[T]) Consume(ctx context.Context, batch []T) error {
	return f(ctx, batch)
}

// Config holds configuration for the Batcher.
type Config struct {
	// Size is the number of items that triggers a flush to the Consumer.
	Size int
}
