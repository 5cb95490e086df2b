package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestHooksBasic(t *testing.T) {
	var mu sync.Mutex
	events := []string{}
	infos := map[int]JobInfo{}

	p := newTestPool(t, 2,
		WithBeforeJobStart(func(info JobInfo) {
			mu.Lock()
			events = append(events, fmt.Sprintf("start:%d", info.Index))
			infos[info.Index] = info
			mu.Unlock()
		}),
		WithOnJobEnd(func(info JobInfo, elapsed time.Duration, err error) {
			mu.Lock()
			if err != nil {
				events = append(events, fmt.Sprintf("end:%d:error", info.Index))
			} else {
				events = append(events, fmt.Sprintf("end:%d", info.Index))
			}
			mu.Unlock()
		}),
	)

	inputs := []int{1, 2, 3}
	results, err := Process(context.Background(), p, inputs, func(ctx context.Context, n int) (string, error) {
		time.Sleep(10 * time.Millisecond)
		return fmt.Sprintf("result-%d", n), nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	mu.Lock()
	defer mu.Unlock()

	if len(events) != 6 { // 3 starts + 3 ends
		t.Errorf("expected 6 events, got %d: %v", len(events), events)
	}

	for i := range inputs {
		startFound, endFound := false, false
		for _, event := range events {
			if event == fmt.Sprintf("start:%d", i) {
				startFound = true
			}
			if event == fmt.Sprintf("end:%d", i) {
				endFound = true
			}
		}
		if !startFound {
			t.Errorf("start event not found for job %d", i)
		}
		if !endFound {
			t.Errorf("end event not found for job %d", i)
		}
	}

	batchID := infos[0].BatchID
	if batchID == "" {
		t.Fatal("batch jobs should carry a batch id")
	}
	for i, info := range infos {
		if info.BatchID != batchID {
			t.Errorf("job %d has batch id %q, want %q", i, info.BatchID, batchID)
		}
	}
}

func TestHooks_SingleSubmissionInfo(t *testing.T) {
	infoC := make(chan JobInfo, 1)
	p := newTestPool(t, 1, WithBeforeJobStart(func(info JobInfo) {
		infoC <- info
	}))

	h, _ := Submit(p, JobFunc[int](func(ctx context.Context) (int, error) { return 0, nil }))
	_, _ = h.Await()

	info := <-infoC
	if info.ID != h.ID() {
		t.Errorf("expected id %d, got %d", h.ID(), info.ID)
	}
	if info.BatchID != "" || info.Index != -1 {
		t.Errorf("single submission should have no batch, got %+v", info)
	}
}

func TestHooks_OnJobEndSeesFinalError(t *testing.T) {
	boom := errors.New("boom")
	errC := make(chan error, 1)

	p := newTestPool(t, 1, WithOnJobEnd(func(info JobInfo, elapsed time.Duration, err error) {
		if elapsed <= 0 {
			t.Errorf("expected a positive duration, got %v", elapsed)
		}
		errC <- err
	}))

	h, _ := Submit(p, JobFunc[int](func(ctx context.Context) (int, error) {
		time.Sleep(time.Millisecond)
		return 0, boom
	}))
	_, _ = h.Await()

	if err := <-errC; !errors.Is(err, boom) {
		t.Errorf("expected hook to see %v, got %v", boom, err)
	}
}
