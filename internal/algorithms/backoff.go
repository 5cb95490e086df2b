package algorithms

import (
	"math/rand"
	"sync"
	"time"
)

// maxShift bounds the exponent so 1<<attempt never overflows an int64.
const maxShift = 62

// BackoffType selects how the delay between two attempts of a failing job grows.
type BackoffType int

const (
	// BackoffExponential doubles the delay on every retry (default).
	BackoffExponential BackoffType = iota
	// BackoffJittered is exponential with a random ±factor spread.
	BackoffJittered
	// BackoffDecorrelated picks each delay in [initial, 3*previous].
	BackoffDecorrelated
)

// String returns the flag/config spelling of the backoff type.
func (t BackoffType) String() string {
	switch t {
	case BackoffJittered:
		return "jittered"
	case BackoffDecorrelated:
		return "decorrelated"
	default:
		return "exponential"
	}
}

// ParseBackoffType maps "exponential", "jittered" or "decorrelated" to a BackoffType.
// Unknown names report ok=false.
func ParseBackoffType(name string) (BackoffType, bool) {
	switch name {
	case "", "exponential":
		return BackoffExponential, true
	case "jittered":
		return BackoffJittered, true
	case "decorrelated":
		return BackoffDecorrelated, true
	default:
		return BackoffExponential, false
	}
}

// BackoffStrategy computes the wait before a job is retried.
//
// Implementations must be safe for concurrent use: one strategy is shared by every
// worker of a pool.
type BackoffStrategy interface {
	// NextDelay returns the wait before retry number attempt (0 = first retry).
	NextDelay(attempt int, lastErr error) time.Duration

	// Reset clears any state carried between calls.
	Reset()
}

// NewBackoffStrategy builds the strategy for the given type.
func NewBackoffStrategy(kind BackoffType, initialDelay, maxDelay time.Duration, jitterFactor float64) BackoffStrategy {
	if maxDelay < initialDelay {
		maxDelay = initialDelay
	}

	switch kind {
	case BackoffJittered:
		return newJitteredBackoff(initialDelay, maxDelay, jitterFactor)
	case BackoffDecorrelated:
		return newDecorrelatedJitterBackoff(initialDelay, maxDelay)
	default:
		return newExponentialBackoff(initialDelay, maxDelay)
	}
}

// exponentialBackoff waits initialDelay * 2^attempt, capped at maxDelay.
type exponentialBackoff struct {
	initialDelay time.Duration
	maxDelay     time.Duration
}

func newExponentialBackoff(initialDelay, maxDelay time.Duration) *exponentialBackoff {
	return &exponentialBackoff{initialDelay: initialDelay, maxDelay: maxDelay}
}

func (eb *exponentialBackoff) NextDelay(attempt int, _ error) time.Duration {
	return calcExponentialDelay(attempt, eb.initialDelay, eb.maxDelay)
}

func (eb *exponentialBackoff) Reset() {}

// jitteredBackoff spreads the exponential delay by ±jitterFactor so that jobs failing
// together do not retry together.
type jitteredBackoff struct {
	initialDelay, maxDelay time.Duration
	jitterFactor           float64
	rng                    *rand.Rand
	mu                     sync.Mutex
}

func newJitteredBackoff(initialDelay, maxDelay time.Duration, jitterFactor float64) *jitteredBackoff {
	return &jitteredBackoff{
		initialDelay: initialDelay,
		maxDelay:     maxDelay,
		jitterFactor: clamp(jitterFactor, 0, 1),
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())), // #nosec G404 -- jitter does not need crypto rand
	}
}

func (jb *jitteredBackoff) NextDelay(attempt int, _ error) time.Duration {
	if attempt < 0 {
		return 0
	}

	base := calcExponentialDelay(attempt, jb.initialDelay, jb.maxDelay)

	jb.mu.Lock()
	multiplier := 1.0 + (jb.rng.Float64()*2-1)*jb.jitterFactor
	jb.mu.Unlock()

	return clamp(time.Duration(float64(base)*multiplier), 0, jb.maxDelay)
}

func (jb *jitteredBackoff) Reset() {}

// decorrelatedJitterBackoff implements sleep = min(maxDelay, random(initial, prev*3)).
// Each delay depends on the previous one rather than on the attempt number.
type decorrelatedJitterBackoff struct {
	initialDelay time.Duration
	maxDelay     time.Duration
	prevDelay    time.Duration
	rng          *rand.Rand
	mu           sync.Mutex
}

func newDecorrelatedJitterBackoff(initialDelay, maxDelay time.Duration) *decorrelatedJitterBackoff {
	return &decorrelatedJitterBackoff{
		initialDelay: initialDelay,
		maxDelay:     maxDelay,
		prevDelay:    initialDelay,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())), // #nosec G404 -- jitter does not need crypto rand
	}
}

func (djb *decorrelatedJitterBackoff) NextDelay(attempt int, _ error) time.Duration {
	djb.mu.Lock()
	defer djb.mu.Unlock()

	if attempt <= 0 {
		djb.prevDelay = djb.initialDelay
		return djb.initialDelay
	}

	upper := min(time.Duration(float64(djb.prevDelay)*3), djb.maxDelay)
	spread := upper - djb.initialDelay
	if spread <= 0 {
		djb.prevDelay = djb.initialDelay
		return djb.initialDelay
	}

	delay := djb.initialDelay + time.Duration(djb.rng.Int63n(int64(spread)))
	djb.prevDelay = delay
	return delay
}

func (djb *decorrelatedJitterBackoff) Reset() {
	djb.mu.Lock()
	defer djb.mu.Unlock()
	djb.prevDelay = djb.initialDelay
}

func calcExponentialDelay(attempt int, initialDelay, maxDelay time.Duration) time.Duration {
	if attempt < 0 {
		return 0
	}
	if initialDelay <= 0 {
		return 0
	}
	if attempt > maxShift || initialDelay > maxDelay>>uint(attempt) {
		return maxDelay
	}
	return initialDelay << uint(attempt)
}

func clamp[N int64 | float64 | time.Duration](v, lo, hi N) N {
	return max(lo, min(v, hi))
}
