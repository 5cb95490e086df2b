package pool

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_CountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg, "test")
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	p, _ := New(2, WithMetrics(m))
	_, _ = Process(context.Background(), p, []int{1, 2, 3, 4}, func(ctx context.Context, n int) (int, error) {
		if n == 4 {
			return 0, errors.New("bad input")
		}
		return n, nil
	})
	if err := p.Shutdown(0); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	checks := map[string]struct {
		c    prometheus.Collector
		want float64
	}{
		"submitted": {m.JobsSubmitted, 4},
		"completed": {m.JobsCompleted, 3},
		"failed":    {m.JobsFailed, 1},
		"cancelled": {m.JobsCancelled, 0},
		"running":   {m.JobsRunning, 0},
		"queued":    {m.QueueDepth, 0},
	}
	for name, c := range checks {
		if got := testutil.ToFloat64(c.c); got != c.want {
			t.Errorf("%s: expected %v, got %v", name, c.want, got)
		}
	}

	if n := testutil.CollectAndCount(m.JobDuration); n != 1 {
		t.Errorf("expected one duration histogram series, got %d", n)
	}
}

func TestMetrics_CancelledJobs(t *testing.T) {
	m, _ := NewMetrics(nil, "test")
	p, _ := New(1, WithMetrics(m))

	started := make(chan struct{})
	_, _ = Submit(p, JobFunc[int](func(ctx context.Context) (int, error) {
		close(started)
		<-ctx.Done()
		return 0, ctx.Err()
	}))
	<-started
	_, _ = Submit(p, JobFunc[int](func(ctx context.Context) (int, error) { return 0, nil }))

	if err := p.Shutdown(20 * time.Millisecond); !errors.Is(err, ErrShutdownTimeout) {
		t.Fatalf("expected ErrShutdownTimeout, got %v", err)
	}

	if got := testutil.ToFloat64(m.JobsCancelled); got != 2 {
		t.Errorf("expected 2 cancelled jobs, got %v", got)
	}
	if got := testutil.ToFloat64(m.QueueDepth); got != 0 {
		t.Errorf("expected empty queue gauge, got %v", got)
	}
}

func TestMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewMetrics(reg, "dup"); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if _, err := NewMetrics(reg, "dup"); err == nil {
		t.Error("expected an error registering the same collectors twice")
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.submitted(1)
	m.started()
	m.finished(time.Millisecond)
	m.dropped(1)
	m.resolved(nil)
}

func TestLogger_PanicIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	p, _ := New(1, WithLogger(logger))
	h, _ := Submit(p, JobFunc[int](func(ctx context.Context) (int, error) {
		panic("kaboom")
	}))
	_, _ = h.Await()
	_ = p.Shutdown(time.Second)

	out := buf.String()
	for _, want := range []string{"pool started", "job panicked", "kaboom", "pool stopped"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}
