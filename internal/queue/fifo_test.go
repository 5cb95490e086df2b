package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestFIFO_BasicEnqueueDequeue(t *testing.T) {
	q := NewFIFO[int](0)
	ctx := context.Background()

	for i := range 5 {
		if err := q.Enqueue(i); err != nil {
			t.Fatalf("failed to enqueue %d: %v", i, err)
		}
	}

	for i := range 5 {
		val, err := q.Dequeue(ctx)
		if err != nil {
			t.Fatalf("failed to dequeue: %v", err)
		}
		if val != i {
			t.Errorf("expected %d, got %d", i, val)
		}
	}
}

func TestFIFO_GrowsPastInitialCapacity(t *testing.T) {
	q := NewFIFO[int](0)
	n := defaultInitialCapacity*3 + 7

	// Interleave pops so head wraps before the ring grows.
	for i := range 10 {
		_ = q.Enqueue(i)
	}
	for range 5 {
		_, _ = q.TryDequeue()
	}
	for i := 10; i < n; i++ {
		if err := q.Enqueue(i); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}

	if q.Len() != n-5 {
		t.Fatalf("expected len %d, got %d", n-5, q.Len())
	}

	for want := 5; want < n; want++ {
		got, ok := q.TryDequeue()
		if !ok {
			t.Fatalf("queue empty at %d", want)
		}
		if got != want {
			t.Fatalf("expected %d, got %d", want, got)
		}
	}
}

func TestFIFO_BoundedQueueFull(t *testing.T) {
	q := NewFIFO[int](4)

	for i := range 4 {
		if err := q.Enqueue(i); err != nil {
			t.Fatalf("failed to enqueue %d: %v", i, err)
		}
	}

	if err := q.Enqueue(99); !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}

	if q.Cap() != 4 {
		t.Errorf("expected cap 4, got %d", q.Cap())
	}
}

func TestFIFO_EnqueueBatchIsAllOrNothing(t *testing.T) {
	t.Run("fits", func(t *testing.T) {
		q := NewFIFO[int](3)
		if err := q.EnqueueBatch([]int{1, 2, 3}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if q.Len() != 3 {
			t.Errorf("expected 3 items, got %d", q.Len())
		}
	})

	t.Run("does not fit", func(t *testing.T) {
		q := NewFIFO[int](3)
		_ = q.Enqueue(0)
		if err := q.EnqueueBatch([]int{1, 2, 3}); !errors.Is(err, ErrQueueFull) {
			t.Fatalf("expected ErrQueueFull, got %v", err)
		}
		if q.Len() != 1 {
			t.Errorf("batch should not be partially queued, len=%d", q.Len())
		}
	})

	t.Run("closed", func(t *testing.T) {
		q := NewFIFO[int](0)
		q.Close()
		if err := q.EnqueueBatch([]int{1, 2}); !errors.Is(err, ErrQueueClosed) {
			t.Fatalf("expected ErrQueueClosed, got %v", err)
		}
		if q.Len() != 0 {
			t.Errorf("expected empty queue, got %d", q.Len())
		}
	})
}

func TestFIFO_CloseDrainsBeforeReportingClosed(t *testing.T) {
	q := NewFIFO[string](0)
	ctx := context.Background()

	_ = q.Enqueue("a")
	_ = q.Enqueue("b")
	q.Close()
	q.Close()

	if !q.IsClosed() {
		t.Fatal("queue should report closed")
	}

	for _, want := range []string{"a", "b"} {
		got, err := q.Dequeue(ctx)
		if err != nil {
			t.Fatalf("expected %q, got error %v", want, err)
		}
		if got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	}

	if _, err := q.Dequeue(ctx); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("expected ErrQueueClosed, got %v", err)
	}
}

func TestFIFO_DequeueBlocksUntilEnqueue(t *testing.T) {
	q := NewFIFO[int](0)

	got := make(chan int, 1)
	go func() {
		v, err := q.Dequeue(context.Background())
		if err != nil {
			t.Errorf("dequeue: %v", err)
			return
		}
		got <- v
	}()

	time.Sleep(20 * time.Millisecond)
	_ = q.Enqueue(42)

	select {
	case v := <-got:
		if v != 42 {
			t.Errorf("expected 42, got %d", v)
		}
	case <-time.After(time.Second):
		t.Fatal("consumer was not woken")
	}
}

func TestFIFO_DequeueUnblocksOnClose(t *testing.T) {
	q := NewFIFO[int](0)

	errC := make(chan error, 1)
	go func() {
		_, err := q.Dequeue(context.Background())
		errC <- err
	}()

	time.Sleep(20 * time.Millisecond)
	q.Close()

	select {
	case err := <-errC:
		if !errors.Is(err, ErrQueueClosed) {
			t.Errorf("expected ErrQueueClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("consumer was not released by Close")
	}
}

func TestFIFO_DequeueContextCancelled(t *testing.T) {
	q := NewFIFO[int](0)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := q.Dequeue(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded, got %v", err)
	}
}

func TestFIFO_Drain(t *testing.T) {
	q := NewFIFO[int](0)
	for i := range 4 {
		_ = q.Enqueue(i)
	}

	items := q.Drain()
	if len(items) != 4 {
		t.Fatalf("expected 4 drained items, got %d", len(items))
	}
	for i, v := range items {
		if v != i {
			t.Errorf("drain[%d] = %d", i, v)
		}
	}
	if q.Len() != 0 {
		t.Errorf("expected empty queue after drain, got %d", q.Len())
	}
}

func TestFIFO_ConcurrentProducersConsumers(t *testing.T) {
	q := NewFIFO[int](0)
	ctx := context.Background()

	producerCount := 8
	itemsPerProducer := 250
	total := producerCount * itemsPerProducer

	var consumed sync.Map
	var consumers sync.WaitGroup
	for range 4 {
		consumers.Add(1)
		go func() {
			defer consumers.Done()
			for {
				v, err := q.Dequeue(ctx)
				if err != nil {
					return
				}
				if _, dup := consumed.LoadOrStore(v, true); dup {
					t.Errorf("item %d consumed twice", v)
				}
			}
		}()
	}

	var producers sync.WaitGroup
	producers.Add(producerCount)
	for p := range producerCount {
		go func(id int) {
			defer producers.Done()
			for i := range itemsPerProducer {
				if err := q.Enqueue(id*itemsPerProducer + i); err != nil {
					t.Errorf("producer %d: %v", id, err)
					return
				}
			}
		}(p)
	}

	producers.Wait()
	q.Close()
	consumers.Wait()

	count := 0
	consumed.Range(func(_, _ any) bool {
		count++
		return true
	})
	if count != total {
		t.Errorf("expected %d consumed items, got %d", total, count)
	}
}
