package batcher

import (
	"context"
	"sync"
)

const defaultSize = 512

// Batcher collects items pushed from any goroutine and hands them to the
// Consumer in batches of Config.Size. Pending items are delivered by Flush.
// The lock only guards the buffer; consumers run after it is released.
type Batcher[T any] struct {
	mu   sync.Mutex
	cons Consumer[T]
	data []T
	size int
}

// New creates a new Batcher for type T.
func New[T any](cons Consumer[T], cfg Config) *Batcher[T] {
	if cfg.Size <= 0 {
		cfg.Size = defaultSize
	}
	return &Batcher[T]{
		cons: cons,
		data: make([]T, 0, cfg.Size),
		size: cfg.Size,
	}
}

// Push adds an item. When the buffer becomes full it is consumed before
// Push returns and the consumer's error is returned.
func (b *Batcher[T]) Push(ctx context.Context, item T) error {
	b.mu.Lock()
	b.data = append(b.data, item)
	var batch []T
	if len(b.data) >= b.size {
		batch = b.takeLocked()
	}
	b.mu.Unlock()

	if batch == nil {
		return nil
	}
	return b.cons.Consume(ctx, batch)
}

// Flush consumes whatever is pending.
func (b *Batcher[T]) Flush(ctx context.Context) error {
	b.mu.Lock()
	batch := b.takeLocked()
	b.mu.Unlock()

	if batch == nil {
		return nil
	}
	return b.cons.Consume(ctx, batch)
}

// Len returns the number of pending items.
func (b *Batcher[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

func (b *Batcher[T]) takeLocked() []T {
	if len(b.data) == 0 {
		return nil
	}
	batch := b.data
	// the consumer keeps batch, so start a fresh buffer
	b.data = make([]T, 0, b.size)
	return batch
}
