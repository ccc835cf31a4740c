package eventloop

import (
	"sync"
)

// Queue is an unbounded FIFO with a single consumer that takes everything
// pending at once. Producers never block.
//
// Two slices trade places: producers append to one while the consumer
// works through the other, so a busy loop stops allocating once both have
// grown to the usual backlog.
type Queue[T any] struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []T
	closed  bool

	taken int64
}

// NewQueue creates a queue whose pending slice starts at initialCapacity.
func NewQueue[T any](initialCapacity int) *Queue[T] {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	q := &Queue[T]{
		pending: make([]T, 0, initialCapacity),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends item. Returns false if the queue is closed.
func (q *Queue[T]) Push(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.pending = append(q.pending, item)
	q.cond.Signal()
	return true
}

// Drain blocks until items are pending, then returns all of them in push
// order. spent is the batch from the previous call; its storage is reused
// for future pushes, so the caller must be done with it. After Close,
// Drain returns what is left, then false.
func (q *Queue[T]) Drain(spent []T) ([]T, bool) {
	clear(spent)

	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.pending) == 0 && !q.closed {
		q.cond.Wait()
	}

	if len(q.pending) == 0 {
		return spent[:0], false
	}

	batch := q.pending
	q.pending = spent[:0]
	q.taken += int64(len(batch))
	return batch, true
}

// Close stops accepting items and wakes the consumer.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.cond.Broadcast()
}

// Len returns the number of items waiting for the next Drain.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Taken returns the number of items handed out by Drain so far.
func (q *Queue[T]) Taken() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.taken
}
