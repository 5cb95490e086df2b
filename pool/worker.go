package pool

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/utkarsh5026/lambdapool/internal/cpu"
	"github.com/utkarsh5026/lambdapool/internal/queue"
)

// pendingJob is a queued job with its result type erased, so one queue and one set
// of workers can serve handles of any type.
type pendingJob interface {
	id() int64
	execute(ctx context.Context, p *WorkerPool)
	cancel(p *WorkerPool, err error) bool
	resolved() bool
}

type submittedJob[R any] struct {
	job    Job[R]
	handle *Handle[R]
}

func (s *submittedJob[R]) id() int64 {
	return s.handle.info.ID
}

func (s *submittedJob[R]) resolved() bool {
	return s.handle.isResolved()
}

func (s *submittedJob[R]) execute(ctx context.Context, p *WorkerPool) {
	info := s.handle.info

	p.running.Add(1)
	p.conf.metrics.started()
	start := time.Now()

	value, err := executeJob(ctx, p, info, s.job)

	elapsed := time.Since(start)
	p.running.Add(-1)
	p.conf.metrics.finished(elapsed)

	if err != nil {
		err = &JobFailure{JobID: info.ID, Err: err}
	}
	if s.handle.resolve(value, err) {
		p.record(err)
	}
	p.forget(info.ID)
}

func (s *submittedJob[R]) cancel(p *WorkerPool, err error) bool {
	var zero R
	if !s.handle.resolve(zero, err) {
		return false
	}
	p.record(err)
	return true
}

// worker is the core worker loop that takes jobs from the queue until it is closed
// and empty, or until the pool context is cancelled.
func (p *WorkerPool) worker(id int) error {
	if p.conf.cpuAffinity {
		release, err := cpu.Pin(id)
		defer release()
		if err != nil {
			p.logger.Warn("failed to pin worker", "worker", id, "error", err)
		}
	}

	for {
		j, err := p.queue.Dequeue(p.ctx)
		if err != nil {
			if errors.Is(err, queue.ErrQueueClosed) {
				return nil
			}
			return err
		}

		// Jobs taken after a timed-out shutdown cancelled the pool are left to abandon.
		if err := p.ctx.Err(); err != nil {
			p.conf.metrics.dropped(1)
			return err
		}

		if j.resolved() {
			p.conf.metrics.dropped(1)
			p.forget(j.id())
			continue
		}
		j.execute(p.ctx, p)
	}
}

// executeJob runs one job through the rate limiter, the lifecycle hooks and the retry
// policy.
func executeJob[R any](ctx context.Context, p *WorkerPool, info JobInfo, job Job[R]) (R, error) {
	cfg := p.conf

	if cfg.rateLimiter != nil {
		if err := cfg.rateLimiter.Wait(ctx); err != nil {
			var zero R
			return zero, err
		}
	}

	if cfg.beforeJobStart != nil {
		cfg.beforeJobStart(info)
	}

	start := time.Now()
	result, err := processWithRetry(ctx, p, info, job)

	if cfg.onJobEnd != nil {
		cfg.onJobEnd(info, time.Since(start), err)
	}
	return result, err
}

// processWithRetry runs the job until it succeeds or the attempts are used up,
// sleeping between attempts according to the backoff strategy.
func processWithRetry[R any](ctx context.Context, p *WorkerPool, info JobInfo, job Job[R]) (result R, err error) {
	cfg := p.conf
	maxAttempts := max(cfg.maxAttempts, 1)

	for attempt := range maxAttempts {
		if attempt > 0 {
			delay := cfg.backoffStrategy.NextDelay(attempt-1, err)
			if err := sleepCtx(ctx, delay); err != nil {
				return result, err
			}
		}

		result, err = processWithRecovery(ctx, p, info, job)
		if err == nil {
			return result, nil
		}

		if attempt < maxAttempts-1 {
			p.logger.Debug("job attempt failed, retrying",
				"job", info.ID, "attempt", attempt+1, "error", err)
			if cfg.onRetry != nil {
				cfg.onRetry(info, attempt+1, err)
			}
		}
	}

	return result, err
}

// processWithRecovery executes a single attempt with panic recovery.
// If a panic occurs, it's converted to an error wrapping ErrPanic so the worker
// survives.
func processWithRecovery[R any](ctx context.Context, p *WorkerPool, info JobInfo, job Job[R]) (result R, err error) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			err = fmt.Errorf("%w: %v\nstack trace:\n%s", ErrPanic, r, buf[:n])
			p.logger.Error("job panicked", "job", info.ID, "panic", r)
		}
	}()

	return job.Compute(ctx)
}
