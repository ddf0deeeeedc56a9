package barrier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestWaitOnIdleReturnsImmediately(t *testing.T) {
	b := New(nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := b.Wait(ctx); err != nil {
		t.Fatalf("Wait on idle barrier: %v", err)
	}
}

func TestWaitReleasedWhenCountReachesZero(t *testing.T) {
	b := New(nil)
	if n := b.Inc(); n != 1 {
		t.Fatalf("Inc=%d want 1", n)
	}
	if n := b.Inc(); n != 2 {
		t.Fatalf("Inc=%d want 2", n)
	}

	const waiters = 5
	var wg sync.WaitGroup
	errs := make(chan error, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- b.Wait(context.Background())
		}()
	}

	if n := b.Done(); n != 1 {
		t.Fatalf("Done=%d want 1", n)
	}
	select {
	case <-errs:
		t.Fatalf("waiter released while one op still in flight")
	case <-time.After(20 * time.Millisecond):
	}

	if n := b.Done(); n != 0 {
		t.Fatalf("Done=%d want 0", n)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("waiter error: %v", err)
		}
	}
	if b.Count() != 0 {
		t.Fatalf("barrier should be idle")
	}
}

func TestRearmAfterIdle(t *testing.T) {
	b := New(nil)
	b.Inc()
	b.Done()

	b.Inc()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := b.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("re-armed barrier should block, got %v", err)
	}
	b.Done()
	if err := b.Wait(context.Background()); err != nil {
		t.Fatalf("Wait after second drain: %v", err)
	}
}

func TestDoneBelowZeroPanics(t *testing.T) {
	b := New(nil)
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrInvariant) {
			t.Fatalf("expected ErrInvariant panic, got %v", r)
		}
	}()
	b.Done()
}

func TestCountTracksOutstanding(t *testing.T) {
	b := New(nil)
	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		b.Inc()
	}
	if got := b.Count(); got != n {
		t.Fatalf("Count=%d want %d", got, n)
	}
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() { defer wg.Done(); b.Done() }()
	}
	wg.Wait()
	if got := b.Count(); got != 0 {
		t.Fatalf("Count=%d want 0", got)
	}
}

func TestChangesReportedInOrder(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []int
	)
	b := New(func(n int) {
		if n > 0 {
			// A slow observer must not let a later zero overtake this report.
			time.Sleep(time.Millisecond)
		}
		mu.Lock()
		seen = append(seen, n)
		mu.Unlock()
	})

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Inc()
			b.Done()
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2*n {
		t.Fatalf("got %d reports want %d", len(seen), 2*n)
	}
	for i := 1; i < len(seen); i++ {
		if d := seen[i] - seen[i-1]; d != 1 && d != -1 {
			t.Fatalf("reports out of order at %d: %v", i, seen)
		}
	}
	if last := seen[len(seen)-1]; last != 0 {
		t.Fatalf("last report=%d want 0", last)
	}
}
