package pool

import (
	"context"
	"sync"
	"sync/atomic"
)

// Handle is the future of a submitted job.
//
// It is written exactly once, by the worker that ran the job or by a timed-out
// Shutdown, and may be read from any number of goroutines. The value and error are
// published before Done is closed, so every reader that observes a terminal status
// sees the same outcome.
type Handle[R any] struct {
	info   JobInfo
	done   chan struct{}
	once   sync.Once
	status atomic.Int32

	value R
	err   error
}

func newHandle[R any](info JobInfo) *Handle[R] {
	return &Handle[R]{
		info: info,
		done: make(chan struct{}),
	}
}

// ID returns the pool-unique job id.
func (h *Handle[R]) ID() int64 {
	return h.info.ID
}

// Status reports whether the job is still pending or how it ended. It never blocks.
func (h *Handle[R]) Status() Status {
	return Status(h.status.Load())
}

// Done returns a channel closed once the job reached a terminal status.
func (h *Handle[R]) Done() <-chan struct{} {
	return h.done
}

// Await blocks until the job is terminal and returns its value or error.
// Repeated calls return the same outcome.
func (h *Handle[R]) Await() (R, error) {
	<-h.done
	return h.value, h.err
}

// AwaitContext is Await bounded by ctx. If ctx ends first it returns ctx.Err() and
// the job keeps running.
func (h *Handle[R]) AwaitContext(ctx context.Context) (R, error) {
	select {
	case <-h.done:
		return h.value, h.err
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

// TryGet returns the outcome without blocking. ok is false while the job is pending.
func (h *Handle[R]) TryGet() (value R, err error, ok bool) {
	select {
	case <-h.done:
		return h.value, h.err, true
	default:
		var zero R
		return zero, nil, false
	}
}

// resolve stores the outcome if no outcome was stored yet and reports whether this
// call won.
func (h *Handle[R]) resolve(value R, err error) bool {
	won := false
	h.once.Do(func() {
		h.value = value
		h.err = err
		if err != nil {
			h.status.Store(int32(StatusFailed))
		} else {
			h.status.Store(int32(StatusCompleted))
		}
		close(h.done)
		won = true
	})
	return won
}

func (h *Handle[R]) isResolved() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}
