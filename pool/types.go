package pool

import "context"

// ProcessFunc is a function type that defines how individual inputs are processed.
// It takes a context for cancellation/timeout control and an input of type T,
// returning a result of type R.
//
// Type parameters:
//   - T: The type of input to be processed
//   - R: The type of result produced after processing
type ProcessFunc[T any, R any] func(ctx context.Context, input T) (R, error)

// Job is a unit of independent work producing a value of type R.
//
// The context passed to Compute is cancelled when the pool gives up on the job
// during a timed-out shutdown.
type Job[R any] interface {
	Compute(ctx context.Context) (R, error)
}

// JobFunc adapts a closure to the Job interface.
type JobFunc[R any] func(ctx context.Context) (R, error)

// Compute calls f(ctx).
func (f JobFunc[R]) Compute(ctx context.Context) (R, error) {
	return f(ctx)
}

// Void is the result type of jobs that produce no value.
type Void = struct{}

// Runnable is a fire-and-forget job: it only reports completion or failure.
type Runnable func(ctx context.Context) error

// Compute runs r and discards nothing but the error.
func (r Runnable) Compute(ctx context.Context) (Void, error) {
	return Void{}, r(ctx)
}

// boundJob holds its input and the function to apply to it.
type boundJob[T any, R any] struct {
	input T
	fn    ProcessFunc[T, R]
}

func (b boundJob[T, R]) Compute(ctx context.Context) (R, error) {
	return b.fn(ctx, b.input)
}

// Bind returns a Job that applies fn to input. The input is captured by value when
// Bind is called.
func Bind[T any, R any](input T, fn ProcessFunc[T, R]) Job[R] {
	return boundJob[T, R]{input: input, fn: fn}
}

// Result represents the outcome of one job of a batch.
//
// Type parameters:
//   - R: The type of the result value
//
// Fields:
//   - Value: The value produced by the job (only valid if Error is nil)
//   - Error: Why the job failed (nil if successful)
//   - Index: The position of the job in the submitted batch
type Result[R any] struct {
	Value R
	Error error
	Index int
}

// Status is the observable state of a submitted job.
type Status int32

const (
	// StatusPending means the job is queued or running.
	StatusPending Status = iota
	// StatusCompleted means the job produced a value.
	StatusCompleted
	// StatusFailed means the job failed or was cancelled.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// JobInfo identifies a job to lifecycle hooks and logs.
type JobInfo struct {
	// ID is unique within the pool and increases with submission order.
	ID int64

	// BatchID is set for jobs submitted through SubmitBatch or Process.
	BatchID string

	// Index is the position within the batch, -1 for single submissions.
	Index int
}
