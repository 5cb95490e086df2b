package pool

import (
	"errors"
	"fmt"

	"github.com/utkarsh5026/lambdapool/internal/queue"
)

var (
	// ErrConfiguration is wrapped by every error New returns for an invalid setup.
	ErrConfiguration = errors.New("invalid pool configuration")

	// ErrPoolClosed is returned by submissions made after Shutdown started.
	ErrPoolClosed = errors.New("pool is closed")

	// ErrCancelled resolves jobs that were still queued or running when the
	// drain timeout elapsed.
	ErrCancelled = errors.New("job cancelled")

	// ErrShutdownTimeout is returned by Shutdown when the drain timeout elapsed
	// before every job finished.
	ErrShutdownTimeout = errors.New("error in shutting down: timeout reached")

	// ErrQueueFull rejects submissions to a pool whose bounded queue is full.
	ErrQueueFull = queue.ErrQueueFull

	// ErrPanic is wrapped by the failure of a job that panicked.
	ErrPanic = errors.New("job panic")
)

// JobFailure reports that a job's computation returned an error or panicked.
// It never affects other jobs of the pool.
type JobFailure struct {
	JobID int64
	Err   error
}

func (e *JobFailure) Error() string {
	return fmt.Sprintf("job %d failed: %v", e.JobID, e.Err)
}

func (e *JobFailure) Unwrap() error {
	return e.Err
}
