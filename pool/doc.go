// Package pool provides a bounded worker pool with futures and ordered batch
// collection.
//
// A WorkerPool runs a fixed number of worker goroutines, created once by New and
// torn down once by Shutdown. Jobs wait in a first-in-first-out queue until a worker
// is free, so at most Size() jobs execute at any instant. One pool serves jobs of any
// result type: the typed entry points are package-level generic functions.
//
// # Basic Usage
//
//	p, err := pool.New(3)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Shutdown(5 * time.Second)
//
//	results, err := pool.Process(ctx, p, []int{1, 2, 3, 4, 5}, func(ctx context.Context, n int) (int, error) {
//	    return n * 2, nil
//	})
//	// results[i].Value == 2 * (i + 1), whatever order the jobs finished in
//
// # Jobs
//
// A Job[R] has a single Compute method. Closures become jobs through JobFunc, a named
// input-holding job through Bind, and fire-and-forget work through Runnable:
//
//	h1, _ := pool.Submit(p, pool.JobFunc[int](func(ctx context.Context) (int, error) {
//	    return 42, nil
//	}))
//	h2, _ := pool.Submit(p, pool.Bind("hello", shout))
//	h3, _ := pool.Execute(p, func(ctx context.Context) error {
//	    return flush(ctx)
//	})
//
// # Handles
//
// Submit returns immediately with a Handle. Status never blocks, Await blocks until the
// job is terminal and always returns the same outcome afterwards:
//
//	if h1.Status() == pool.StatusPending {
//	    fmt.Println("still running")
//	}
//	v, err := h1.Await()
//
// # Batches
//
// SubmitBatch and Process enqueue a whole batch atomically, wait for every job and
// return results in submission order: results[i] belongs to jobs[i]. A failing job
// only fills its own slot; the batch-level error is reserved for a closed pool or a
// cancelled wait.
//
// # Errors
//
//   - ErrConfiguration: invalid pool size
//   - *JobFailure: the job returned an error or panicked (Unwrap gives the cause)
//   - ErrPoolClosed: submission after Shutdown
//   - ErrCancelled: the job was still queued or running when the drain timeout elapsed
//
// # Configuration Options
//
//   - WithQueueCapacity(n): bound the job queue, rejecting submissions with ErrQueueFull
//   - WithRetryPolicy(maxAttempts, initialDelay): retry failing jobs with backoff
//   - WithBackoff(kind, maxDelay, jitter): choose the retry backoff algorithm
//   - WithRateLimit(jobsPerSecond, burst): throttle job starts
//   - WithBeforeJobStart / WithOnJobEnd / WithOnRetry: lifecycle hooks
//   - WithLogger(logger): structured logging through log/slog
//   - WithMetrics(metrics): Prometheus collectors
//   - WithCPUAffinity(): pin each worker to a core where supported
package pool
