package queue

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

const defaultInitialCapacity = 64

// FIFO is a multi-producer multi-consumer first-in-first-out queue.
//
// Items are kept in a growable ring buffer guarded by a single mutex. Consumers that
// find the queue empty park on notifyC, which producers signal without blocking.
// A woken consumer that leaves items behind re-signals, so a burst of enqueues wakes
// as many consumers as there are items.
//
// Once closed, Enqueue fails with ErrQueueClosed while Dequeue keeps handing out the
// remaining items and only then reports ErrQueueClosed.
type FIFO[T any] struct {
	mu     sync.Mutex
	ring   []T
	head   int
	size   int
	closed bool

	// capacity is the maximum number of queued items, 0 means unbounded.
	capacity int

	// Notification channel for data (BUFFERED, NEVER CLOSED)
	notifyC chan struct{}

	// Notification channel for shutdown (UNBUFFERED, CLOSED ON SHUTDOWN)
	closeC chan struct{}
}

// NewFIFO creates a queue. A capacity of 0 or less makes it unbounded.
func NewFIFO[T any](capacity int) *FIFO[T] {
	if capacity < 0 {
		capacity = 0
	}

	initial := defaultInitialCapacity
	if capacity > 0 && capacity < initial {
		initial = capacity
	}

	return &FIFO[T]{
		ring:     make([]T, initial),
		capacity: capacity,
		notifyC:  make(chan struct{}, 1),
		closeC:   make(chan struct{}),
	}
}

// Enqueue appends a single item.
// Returns ErrQueueClosed if the queue is closed and ErrQueueFull if it is bounded and full.
func (q *FIFO[T]) Enqueue(value T) error {
	return q.EnqueueBatch([]T{value})
}

// EnqueueBatch appends all values atomically: either every value is queued, in order,
// or none is.
func (q *FIFO[T]) EnqueueBatch(values []T) error {
	if len(values) == 0 {
		return nil
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}

	if q.capacity > 0 && q.size+len(values) > q.capacity {
		q.mu.Unlock()
		return ErrQueueFull
	}

	for _, v := range values {
		q.push(v)
	}
	q.mu.Unlock()

	q.signal()
	return nil
}

// Dequeue removes and returns the oldest item, blocking until one is available.
// Returns ErrQueueClosed once the queue is closed and empty, or ctx.Err() if the
// context is done first.
func (q *FIFO[T]) Dequeue(ctx context.Context) (T, error) {
	var zero T

	for {
		q.mu.Lock()
		if q.size > 0 {
			v := q.pop()
			remaining := q.size
			q.mu.Unlock()

			if remaining > 0 {
				q.signal()
			}
			return v, nil
		}

		if q.closed {
			q.mu.Unlock()
			return zero, ErrQueueClosed
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-q.closeC:
		case <-q.notifyC:
		}
	}
}

// TryDequeue attempts to dequeue an item without blocking.
// Returns (value, true) if successful, (zero, false) if queue is empty.
func (q *FIFO[T]) TryDequeue() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.size == 0 {
		var zero T
		return zero, false
	}
	return q.pop(), true
}

// Drain removes and returns every queued item in FIFO order.
func (q *FIFO[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]T, 0, q.size)
	for q.size > 0 {
		out = append(out, q.pop())
	}
	return out
}

// Close marks the queue as closed.
// No new items can be enqueued after close. Safe to call more than once.
func (q *FIFO[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.closeC)
}

// IsClosed returns whether the queue is closed
func (q *FIFO[T]) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Len returns the number of queued items.
func (q *FIFO[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Cap returns the configured capacity, 0 when unbounded.
func (q *FIFO[T]) Cap() int {
	return q.capacity
}

func (q *FIFO[T]) signal() {
	select {
	case q.notifyC <- struct{}{}:
	default:
	}
}

// push must be called with mu held.
func (q *FIFO[T]) push(v T) {
	if q.size == len(q.ring) {
		q.grow()
	}
	q.ring[(q.head+q.size)%len(q.ring)] = v
	q.size++
}

// pop must be called with mu held and size > 0.
func (q *FIFO[T]) pop() T {
	var zero T
	v := q.ring[q.head]
	q.ring[q.head] = zero
	q.head = (q.head + 1) % len(q.ring)
	q.size--
	return v
}

func (q *FIFO[T]) grow() {
	newCap := len(q.ring) * 2
	if newCap == 0 {
		newCap = defaultInitialCapacity
	}

	ring := make([]T, newCap)
	for i := 0; i < q.size; i++ {
		ring[i] = q.ring[(q.head+i)%len(q.ring)]
	}
	q.ring = ring
	q.head = 0
}
