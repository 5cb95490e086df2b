package pool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/utkarsh5026/lambdapool/internal/cpu"
	"github.com/utkarsh5026/lambdapool/internal/queue"
	"golang.org/x/sync/errgroup"
)

// WorkerPool runs submitted jobs on a fixed set of worker goroutines.
//
// Workers are started by New and stopped by Shutdown. Jobs of any result type can be
// submitted through the package-level Submit, Execute, SubmitBatch and Process
// functions. All methods are safe for concurrent use.
type WorkerPool struct {
	size   int
	conf   *workerPoolConfig
	logger *slog.Logger
	queue  *queue.FIFO[pendingJob]

	// ctx is cancelled once the pool stops, which releases idle workers and
	// signals running jobs that were abandoned by a timed-out shutdown.
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	closed  atomic.Bool
	pending map[int64]pendingJob

	// done is closed after every worker returned.
	done   chan struct{}
	nextID atomic.Int64

	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	cancelled atomic.Int64
	running   atomic.Int64
}

// Stats is a point-in-time snapshot of a pool's counters.
type Stats struct {
	Size      int
	Queued    int
	Running   int64
	Submitted int64
	Completed int64
	Failed    int64
	Cancelled int64
}

// DefaultSize returns the suggested pool size: one worker per logical CPU, keeping
// one CPU free, and never less than 1.
func DefaultSize() int {
	return cpu.DefaultPoolSize()
}

// New creates a pool with size workers and starts them.
// It returns an error wrapping ErrConfiguration if size is not positive.
func New(size int, opts ...WorkerPoolOption) (*WorkerPool, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: pool size must be positive, got %d", ErrConfiguration, size)
	}

	cfg := newConfig(opts...)
	ctx, cancel := context.WithCancel(context.Background())

	p := &WorkerPool{
		size:    size,
		conf:    cfg,
		logger:  cfg.logger.With("component", "pool"),
		queue:   queue.NewFIFO[pendingJob](cfg.queueCapacity),
		ctx:     ctx,
		cancel:  cancel,
		pending: make(map[int64]pendingJob),
		done:    make(chan struct{}),
	}

	p.start()
	p.logger.Info("pool started", "workers", size, "queue_capacity", cfg.queueCapacity)
	return p, nil
}

// Size returns the number of workers.
func (p *WorkerPool) Size() int {
	return p.size
}

// Closed reports whether Shutdown has been called.
func (p *WorkerPool) Closed() bool {
	return p.closed.Load()
}

// Stats returns a snapshot of the pool counters.
func (p *WorkerPool) Stats() Stats {
	return Stats{
		Size:      p.size,
		Queued:    p.queue.Len(),
		Running:   p.running.Load(),
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
		Cancelled: p.cancelled.Load(),
	}
}

// Shutdown stops accepting jobs and waits for the queued and running ones to finish.
//
// A drainTimeout of 0 or less waits without limit. If the timeout elapses first, the
// jobs that did not finish are resolved with ErrCancelled, their context is cancelled
// and ErrShutdownTimeout is returned. Calling Shutdown again is a no-op returning nil.
func (p *WorkerPool) Shutdown(drainTimeout time.Duration) error {
	p.mu.Lock()
	if p.closed.Load() {
		p.mu.Unlock()
		return nil
	}
	p.closed.Store(true)
	p.queue.Close()
	p.mu.Unlock()

	p.logger.Info("pool shutting down", "queued", p.queue.Len(), "running", p.running.Load())

	if err := waitUntil(p.done, drainTimeout); err != nil {
		p.cancel()
		n := p.abandon()
		p.logger.Warn("drain timeout reached, jobs cancelled", "timeout", drainTimeout, "cancelled", n)
		return err
	}

	p.cancel()
	p.logger.Info("pool stopped", "completed", p.completed.Load(), "failed", p.failed.Load())
	return nil
}

// abandon resolves every unfinished job with ErrCancelled and returns how many
// were cancelled.
func (p *WorkerPool) abandon() int {
	dropped := p.queue.Drain()
	p.conf.metrics.dropped(len(dropped))

	p.mu.Lock()
	unfinished := make([]pendingJob, 0, len(p.pending))
	for _, j := range p.pending {
		unfinished = append(unfinished, j)
	}
	clear(p.pending)
	p.mu.Unlock()

	n := 0
	for _, j := range unfinished {
		if j.cancel(p, ErrCancelled) {
			n++
		}
	}
	return n
}

func (p *WorkerPool) start() {
	var g errgroup.Group
	for id := range p.size {
		g.Go(func() error {
			return p.worker(id)
		})
	}

	go func() {
		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			p.logger.Error("worker stopped with error", "error", err)
		}
		close(p.done)
	}()
}

func (p *WorkerPool) register(jobs []pendingJob) {
	for _, j := range jobs {
		p.pending[j.id()] = j
	}
}

func (p *WorkerPool) forget(id int64) {
	p.mu.Lock()
	delete(p.pending, id)
	p.mu.Unlock()
}

// record counts a job outcome. Only the call that resolved the handle records.
func (p *WorkerPool) record(err error) {
	switch {
	case err == nil:
		p.completed.Add(1)
	case errors.Is(err, ErrCancelled):
		p.cancelled.Add(1)
	default:
		p.failed.Add(1)
	}
	p.conf.metrics.resolved(err)
}
