package batch

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Processor handles one flushed batch.
type Processor[T any] interface {
	ProcessBatch(ctx context.Context, items []T) error
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc[T any] func(ctx context.Context, items []T) error

func (f ProcessorFunc[T]) ProcessBatch(ctx context.Context, items []T) error {
	return f(ctx, items)
}

// Batcher collects items and hands them to a Processor when the batch fills
// up or the interval elapses. Add never blocks on processing.
type Batcher[T any] struct {
	batchSize     int
	batchInterval time.Duration
	clock         clockwork.Clock
	processor     Processor[T]
	onError       func(error)

	mu      sync.Mutex
	pending []T

	// flushMu keeps batches from being processed concurrently
	flushMu   sync.Mutex
	flushChan chan struct{}
	stopChan  chan struct{}
	done      chan struct{}
	stopOnce  sync.Once
}

type Option[T any] func(*Batcher[T])

func WithClock[T any](clock clockwork.Clock) Option[T] {
	return func(b *Batcher[T]) { b.clock = clock }
}

// WithErrorHandler receives errors from background flushes.
func WithErrorHandler[T any](fn func(error)) Option[T] {
	return func(b *Batcher[T]) { b.onError = fn }
}

func NewBatcher[T any](batchSize int, batchInterval time.Duration, processor Processor[T], opts ...Option[T]) *Batcher[T] {
	if batchSize < 1 {
		batchSize = 1
	}
	b := &Batcher[T]{
		batchSize:     batchSize,
		batchInterval: batchInterval,
		clock:         clockwork.NewRealClock(),
		processor:     processor,
		pending:       make([]T, 0, batchSize),
		flushChan:     make(chan struct{}, 1),
		stopChan:      make(chan struct{}),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	go b.run()

	return b
}

func (b *Batcher[T]) Add(item T) {
	b.mu.Lock()
	b.pending = append(b.pending, item)
	shouldFlush := len(b.pending) >= b.batchSize
	b.mu.Unlock()

	if shouldFlush {
		select {
		case b.flushChan <- struct{}{}:
		default:
		}
	}
}

// Flush processes everything pending right now.
func (b *Batcher[T]) Flush(ctx context.Context) error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	b.mu.Lock()
	if len(b.pending) == 0 {
		b.mu.Unlock()
		return nil
	}
	items := b.pending
	b.pending = make([]T, 0, b.batchSize)
	b.mu.Unlock()

	return b.processor.ProcessBatch(ctx, items)
}

func (b *Batcher[T]) run() {
	defer close(b.done)

	ticker := b.clock.NewTicker(b.batchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			b.flushInBackground()
		case <-b.flushChan:
			b.flushInBackground()
		case <-b.stopChan:
			b.flushInBackground()
			return
		}
	}
}

func (b *Batcher[T]) flushInBackground() {
	if err := b.Flush(context.Background()); err != nil && b.onError != nil {
		b.onError(err)
	}
}

// Stop flushes what is pending and waits for the background loop to exit.
func (b *Batcher[T]) Stop() {
	b.stopOnce.Do(func() { close(b.stopChan) })
	<-b.done
}

func (b *Batcher[T]) PendingCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
