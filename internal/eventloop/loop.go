package eventloop

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
)

// Errors
var (
	ErrClosed  = errors.New("event loop closed")
	ErrRunning = errors.New("event loop already running")
)

// Loop runs posted functions one at a time, in order, on the goroutine
// that called Run.
type Loop struct {
	queue   *Queue[func()]
	logger  *slog.Logger
	running atomic.Bool
}

// New creates a loop whose queue starts at initialCapacity and grows as
// needed.
func New(initialCapacity int, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}

	return &Loop{
		queue:  NewQueue[func()](initialCapacity),
		logger: logger,
	}
}

// Post enqueues fn without blocking. It returns false once the loop is
// closed.
func (l *Loop) Post(fn func()) bool {
	if fn == nil {
		return false
	}
	return l.queue.Push(fn)
}

// Run executes posted functions until ctx is done or Close is called.
// Functions already queued when that happens still run.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer l.running.Store(false)

	stop := context.AfterFunc(ctx, l.queue.Close)
	defer stop()

	l.logger.Debug("event loop started")

	var batch []func()
	for {
		var ok bool
		batch, ok = l.queue.Drain(batch)
		if !ok {
			l.logger.Debug("event loop stopped", "processed", l.queue.Taken())
			return nil
		}
		for _, fn := range batch {
			fn()
		}
	}
}

// Do runs fn on the loop and waits for it to return. It must not be
// called from the loop itself.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if !l.Post(func() {
		defer close(done)
		fn()
	}) {
		return ErrClosed
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting new functions. Run returns after draining the
// queue.
func (l *Loop) Close() {
	l.queue.Close()
}

// Len returns the number of functions waiting to run.
func (l *Loop) Len() int {
	return l.queue.Len()
}
