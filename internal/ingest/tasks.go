package ingest

import (
	"context"
	"sync"

	"github.com/agrilink/agrilink-platform/pkg/logging"
)

// Tasks runs background continuations off the webhook request path. Workers
// drain a buffered channel; when the buffer is full the task runs on its own
// goroutine rather than block or drop, so a listing is never lost to
// backpressure.
type Tasks struct {
	ch      chan func(context.Context)
	workers int
	logger  *logging.Logger

	wg      sync.WaitGroup
	inline  sync.WaitGroup
	mu      sync.Mutex
	started bool
	closed  bool
}

func NewTasks(workers, buffer int, logger *logging.Logger) *Tasks {
	if workers <= 0 {
		workers = 2
	}
	if buffer <= 0 {
		buffer = 128
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Tasks{
		ch:      make(chan func(context.Context), buffer),
		workers: workers,
		logger:  logger,
	}
}

// Start launches the worker goroutines. Tasks run with ctx, so cancelling it
// aborts in-flight work on shutdown.
func (t *Tasks) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return
	}
	t.started = true
	for i := 0; i < t.workers; i++ {
		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			for fn := range t.ch {
				t.run(ctx, fn)
			}
		}()
	}
}

// Enqueue schedules fn. It never blocks the caller.
func (t *Tasks) Enqueue(fn func(context.Context)) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	select {
	case t.ch <- fn:
		t.mu.Unlock()
		return
	default:
	}
	t.inline.Add(1)
	t.mu.Unlock()
	go func() {
		defer t.inline.Done()
		t.run(context.Background(), fn)
	}()
}

// Close stops accepting work and waits for everything in flight.
func (t *Tasks) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	close(t.ch)
	t.mu.Unlock()
	t.wg.Wait()
	t.inline.Wait()
}

func (t *Tasks) run(ctx context.Context, fn func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("background task panicked", "panic", r)
		}
	}()
	fn(ctx)
}
