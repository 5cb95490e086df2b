package pool

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/utkarsh5026/lambdapool/internal/queue"
)

var errNilJob = errors.New("nil job")

// Submit queues job for execution and returns its handle immediately.
//
// Returns ErrPoolClosed after Shutdown, and an error wrapping ErrQueueFull when the
// pool has a bounded queue with no room left.
func Submit[R any](p *WorkerPool, job Job[R]) (*Handle[R], error) {
	handles, err := enqueue(p, "", []Job[R]{job})
	if err != nil {
		return nil, err
	}
	return handles[0], nil
}

// Execute queues a job that produces no value. The handle only reports whether it
// completed or failed.
func Execute(p *WorkerPool, r Runnable) (*Handle[Void], error) {
	if r == nil {
		return nil, errNilJob
	}
	return Submit[Void](p, r)
}

// SubmitBatch queues all jobs atomically, waits for each of them and returns their
// outcomes in submission order: results[i] belongs to jobs[i].
//
// A failing job only fills the Error of its own slot. The returned error is
// ErrPoolClosed or a queue error when nothing was queued, or ctx.Err() when ctx ended
// before every job finished; the jobs keep running in that case and their slots
// carry ctx.Err().
func SubmitBatch[R any](ctx context.Context, p *WorkerPool, jobs []Job[R]) ([]Result[R], error) {
	if p.Closed() {
		return nil, ErrPoolClosed
	}
	if len(jobs) == 0 {
		return []Result[R]{}, nil
	}

	handles, err := enqueue(p, uuid.NewString(), jobs)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("batch submitted", "batch", handles[0].info.BatchID, "jobs", len(jobs))
	return AwaitAll(ctx, handles)
}

// Process applies processFn to every input on the pool and returns the results in
// input order.
//
// Example:
//
//	results, err := pool.Process(ctx, p, urls, fetch)
//	for _, r := range results {
//	    if r.Error != nil {
//	        log.Printf("url %d failed: %v", r.Index, r.Error)
//	    }
//	}
func Process[T any, R any](ctx context.Context, p *WorkerPool, inputs []T, processFn ProcessFunc[T, R]) ([]Result[R], error) {
	jobs := make([]Job[R], len(inputs))
	for i, in := range inputs {
		jobs[i] = Bind(in, processFn)
	}
	return SubmitBatch(ctx, p, jobs)
}

// AwaitAll waits for every handle and returns their outcomes in order.
//
// If ctx ends first the returned error is ctx.Err(); the slots of jobs that were
// still pending carry ctx.Err() as well, finished ones keep their real outcome.
func AwaitAll[R any](ctx context.Context, handles []*Handle[R]) ([]Result[R], error) {
	results := make([]Result[R], len(handles))

	for i, h := range handles {
		results[i].Index = i

		select {
		case <-h.done:
			results[i].Value, results[i].Error = h.value, h.err

		case <-ctx.Done():
			for j := i; j < len(handles); j++ {
				results[j].Index = j
				if v, err, ok := handles[j].TryGet(); ok {
					results[j].Value, results[j].Error = v, err
				} else {
					results[j].Error = ctx.Err()
				}
			}
			return results, ctx.Err()
		}
	}

	return results, nil
}

// enqueue registers and queues jobs as one unit. Either all of them are queued or
// none is.
func enqueue[R any](p *WorkerPool, batchID string, jobs []Job[R]) ([]*Handle[R], error) {
	for _, job := range jobs {
		if job == nil {
			return nil, errNilJob
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed.Load() {
		return nil, ErrPoolClosed
	}

	handles := make([]*Handle[R], len(jobs))
	entries := make([]pendingJob, len(jobs))
	for i, job := range jobs {
		info := JobInfo{ID: p.nextID.Add(1), BatchID: batchID, Index: -1}
		if batchID != "" {
			info.Index = i
		}

		handles[i] = newHandle[R](info)
		entries[i] = &submittedJob[R]{job: job, handle: handles[i]}
	}

	if err := p.queue.EnqueueBatch(entries); err != nil {
		if errors.Is(err, queue.ErrQueueClosed) {
			return nil, ErrPoolClosed
		}
		return nil, fmt.Errorf("%w: %d job(s) rejected, capacity %d", err, len(jobs), p.queue.Cap())
	}

	// Workers forget finished jobs under mu, so registering after the enqueue is safe.
	p.register(entries)
	p.submitted.Add(int64(len(jobs)))
	p.conf.metrics.submitted(len(jobs))

	return handles, nil
}
