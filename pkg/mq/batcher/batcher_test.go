package batcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockConsumer is a test Consumer that tracks received batches.
type mockConsumer[T any] struct {
	mu      sync.Mutex
	batches [][]T
	calls   atomic.Int32
	err     error
}

func (m *mockConsumer[T]) Consume(_ context.Context, batch []T) error {
	m.calls.Add(1)
	m.mu.Lock()
	m.batches = append(m.batches, batch)
	m.mu.Unlock()
	return m.err
}

func (m *mockConsumer[T]) totalItems() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := 0
	for _, b := range m.batches {
		total += len(b)
	}
	return total
}

func TestNew_DefaultSize(t *testing.T) {
	tests := []struct {
		name     string
		size     int
		wantSize int
	}{
		{name: "valid_size", size: 100, wantSize: 100},
		{name: "zero_defaults", size: 0, wantSize: defaultSize},
		{name: "negative_defaults", size: -5, wantSize: defaultSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New[int](&mockConsumer[int]{}, Config{Size: tt.size})
			assert.Equal(t, tt.wantSize, b.size)
		})
	}
}

func TestBatcher_FlushOnSize(t *testing.T) {
	ctx := context.Background()
	cons := &mockConsumer[int]{}
	b := New[int](cons, Config{Size: 3})

	for i := 0; i < 7; i++ {
		require.NoError(t, b.Push(ctx, i))
	}

	assert.EqualValues(t, 2, cons.calls.Load())
	assert.Equal(t, []int{0, 1, 2}, cons.batches[0])
	assert.Equal(t, []int{3, 4, 5}, cons.batches[1])
	assert.Equal(t, 1, b.Len())

	require.NoError(t, b.Flush(ctx))
	assert.Equal(t, []int{6}, cons.batches[2])
	assert.Zero(t, b.Len())
}

func TestBatcher_FlushEmpty(t *testing.T) {
	ctx := context.Background()
	cons := &mockConsumer[int]{}
	b := New[int](cons, Config{Size: 3})

	require.NoError(t, b.Flush(ctx))
	assert.Zero(t, cons.calls.Load())
}

func TestBatcher_BatchesAreNotReused(t *testing.T) {
	ctx := context.Background()
	cons := &mockConsumer[int]{}
	b := New[int](cons, Config{Size: 2})

	require.NoError(t, b.Push(ctx, 1))
	require.NoError(t, b.Push(ctx, 2))
	require.NoError(t, b.Push(ctx, 3))
	require.NoError(t, b.Push(ctx, 4))

	assert.Equal(t, []int{1, 2}, cons.batches[0])
	assert.Equal(t, []int{3, 4}, cons.batches[1])
}

func TestBatcher_ConsumerError(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	b := New[string](ConsumerFunc[string](func(context.Context, []string) error { return boom }), Config{Size: 1})

	assert.ErrorIs(t, b.Push(ctx, "x"), boom)
	assert.Zero(t, b.Len(), "failed batches are handed over, not retried")
}

func TestBatcher_ConcurrentPush(t *testing.T) {
	ctx := context.Background()
	cons := &mockConsumer[int]{}
	b := New[int](cons, Config{Size: 16})

	const goroutines, perGoroutine = 8, 100
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				_ = b.Push(ctx, i)
			}
		}()
	}
	wg.Wait()
	require.NoError(t, b.Flush(ctx))

	assert.Equal(t, goroutines*perGoroutine, cons.totalItems())
}

func TestBatcher_ConsumeRunsOutsideLock(t *testing.T) {
	ctx := context.Background()
	entered := make(chan struct{})
	release := make(chan struct{})
	b := New[int](ConsumerFunc[int](func(context.Context, []int) error {
		close(entered)
		<-release
		return nil
	}), Config{Size: 2})

	done := make(chan error, 1)
	go func() {
		_ = b.Push(ctx, 1)
		done <- b.Push(ctx, 2)
	}()
	<-entered

	// the consumer is still busy; other pushers are not held up
	require.NoError(t, b.Push(ctx, 3))
	assert.Equal(t, 1, b.Len())

	close(release)
	require.NoError(t, <-done)
}

func TestBatcher_PassesContext(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "caller")

	var got any
	b := New[int](ConsumerFunc[int](func(ctx context.Context, _ []int) error {
		got = ctx.Value(key{})
		return nil
	}), Config{Size: 1})

	require.NoError(t, b.Push(ctx, 1))
	assert.Equal(t, "caller", got)
}
