package pool

import (
	"log/slog"
	"time"

	"github.com/utkarsh5026/lambdapool/internal/algorithms"
	"golang.org/x/time/rate"
)

// BackoffType selects the delay growth between retries of a failing job.
type BackoffType = algorithms.BackoffType

const (
	BackoffExponential  = algorithms.BackoffExponential
	BackoffJittered     = algorithms.BackoffJittered
	BackoffDecorrelated = algorithms.BackoffDecorrelated
)

// WorkerPoolOption is a functional option for configuring the worker pool.
type WorkerPoolOption func(*workerPoolConfig)

type workerPoolConfig struct {
	queueCapacity int
	maxAttempts   int
	initialDelay  time.Duration
	rateLimiter   *rate.Limiter

	backoffType         BackoffType
	backoffMaxDelay     time.Duration
	backoffJitterFactor float64
	backoffStrategy     algorithms.BackoffStrategy

	beforeJobStart func(JobInfo)
	onJobEnd       func(JobInfo, time.Duration, error)
	onRetry        func(JobInfo, int, error)

	logger      *slog.Logger
	metrics     *Metrics
	cpuAffinity bool
}

func defaultConfig() *workerPoolConfig {
	return &workerPoolConfig{
		maxAttempts:         1,
		initialDelay:        100 * time.Millisecond,
		backoffType:         BackoffExponential,
		backoffMaxDelay:     5 * time.Second,
		backoffJitterFactor: 0.1,
		logger:              slog.New(slog.DiscardHandler),
	}
}

func newConfig(opts ...WorkerPoolOption) *workerPoolConfig {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	cfg.backoffStrategy = algorithms.NewBackoffStrategy(
		cfg.backoffType,
		cfg.initialDelay,
		cfg.backoffMaxDelay,
		cfg.backoffJitterFactor,
	)
	return cfg
}

// WithQueueCapacity bounds the number of jobs waiting for a worker.
// Submissions that would exceed it fail with ErrQueueFull. The default is unbounded.
func WithQueueCapacity(capacity int) WorkerPoolOption {
	return func(cfg *workerPoolConfig) {
		if capacity > 0 {
			cfg.queueCapacity = capacity
		}
	}
}

// WithRetryPolicy sets a retry policy for job processing.
// maxAttempts specifies the maximum number of attempts for each job.
// initialDelay specifies the delay before the first retry, subsequent retries
// follow the configured backoff. If not specified, no retries are performed.
func WithRetryPolicy(maxAttempts int, initialDelay time.Duration) WorkerPoolOption {
	return func(cfg *workerPoolConfig) {
		if maxAttempts > 0 {
			cfg.maxAttempts = maxAttempts
		}

		if initialDelay >= 0 {
			cfg.initialDelay = initialDelay
		}
	}
}

// WithBackoff selects the backoff algorithm used between retries.
//
//   - BackoffExponential: initialDelay * 2^attempt, capped at maxDelay
//   - BackoffJittered: exponential with a ±jitterFactor random spread
//   - BackoffDecorrelated: random delay between initialDelay and 3x the previous one
//
// Only has an effect together with WithRetryPolicy.
func WithBackoff(kind BackoffType, maxDelay time.Duration, jitterFactor float64) WorkerPoolOption {
	return func(cfg *workerPoolConfig) {
		cfg.backoffType = kind
		if maxDelay > 0 {
			cfg.backoffMaxDelay = maxDelay
		}
		if jitterFactor >= 0 && jitterFactor <= 1 {
			cfg.backoffJitterFactor = jitterFactor
		}
	}
}

// WithRateLimit sets a rate limiter for controlling job throughput.
// jobsPerSecond specifies the maximum number of jobs started per second.
// burst specifies the maximum number of jobs that can start in a burst.
// If not specified, no rate limiting is applied.
//
// Example:
//
//	WithRateLimit(10, 5) // Allow 10 jobs/sec with burst of 5
func WithRateLimit(jobsPerSecond float64, burst int) WorkerPoolOption {
	return func(cfg *workerPoolConfig) {
		if jobsPerSecond > 0 && burst > 0 {
			cfg.rateLimiter = rate.NewLimiter(rate.Limit(jobsPerSecond), burst)
		}
	}
}

// WithBeforeJobStart registers a hook run by the worker right before a job computes.
// The hook runs on the worker goroutine and must be safe for concurrent use.
func WithBeforeJobStart(fn func(info JobInfo)) WorkerPoolOption {
	return func(cfg *workerPoolConfig) {
		cfg.beforeJobStart = fn
	}
}

// WithOnJobEnd registers a hook run after a job's last attempt, with the time it
// spent computing and its final error.
func WithOnJobEnd(fn func(info JobInfo, elapsed time.Duration, err error)) WorkerPoolOption {
	return func(cfg *workerPoolConfig) {
		cfg.onJobEnd = fn
	}
}

// WithOnRetry registers a hook run after every failed attempt that will be retried.
// attempt is 1 for the first failure.
func WithOnRetry(fn func(info JobInfo, attempt int, err error)) WorkerPoolOption {
	return func(cfg *workerPoolConfig) {
		cfg.onRetry = fn
	}
}

// WithLogger sets the structured logger. Pools are silent by default.
func WithLogger(logger *slog.Logger) WorkerPoolOption {
	return func(cfg *workerPoolConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithMetrics records job counts, queue depth and durations into m.
func WithMetrics(m *Metrics) WorkerPoolOption {
	return func(cfg *workerPoolConfig) {
		cfg.metrics = m
	}
}

// WithCPUAffinity pins each worker goroutine to its own OS thread and core.
// It is a no-op on platforms without thread affinity support.
func WithCPUAffinity() WorkerPoolOption {
	return func(cfg *workerPoolConfig) {
		cfg.cpuAffinity = true
	}
}
