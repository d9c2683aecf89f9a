package executor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNew_RejectsZeroCapacity(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Fatal("New(0) succeeded, want error")
	}
	if _, err := New(-3); err == nil {
		t.Fatal("New(-3) succeeded, want error")
	}
}

func TestExecute_ReturnsTaskResult(t *testing.T) {
	e, err := New(1)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	wantErr := errors.New("task failed")
	done, err := e.Execute(func() error { return wantErr })
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	select {
	case got := <-done:
		if !errors.Is(got, wantErr) {
			t.Errorf("task result = %v, want %v", got, wantErr)
		}
	case <-time.After(time.Second):
		t.Fatal("task result never delivered")
	}
}

func TestExecute_SaturationFails(t *testing.T) {
	e, _ := New(2)

	block := make(chan struct{})
	for i := 0; i < 2; i++ {
		if _, err := e.Execute(func() error { <-block; return nil }); err != nil {
			t.Fatalf("Execute %d failed: %v", i, err)
		}
	}

	if _, err := e.Execute(func() error { return nil }); !errors.Is(err, ErrNoSlotAvailable) {
		t.Errorf("Execute on full pool = %v, want ErrNoSlotAvailable", err)
	}

	close(block)
}

func TestCapacityInvariant(t *testing.T) {
	const capacity = 4
	const tasks = 100

	e, _ := New(capacity)

	var running, peak atomic.Int64
	var wg sync.WaitGroup

	ctx := context.Background()
	for i := 0; i < tasks; i++ {
		if err := e.Wait(ctx); err != nil {
			t.Fatalf("Wait failed: %v", err)
		}

		done, err := e.Execute(func() error {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			running.Add(-1)
			return nil
		})
		if err != nil {
			// Lost a race for the freed slot; try again.
			i--
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			<-done
		}()
	}

	wg.Wait()

	if p := peak.Load(); p > capacity {
		t.Errorf("peak concurrency = %d, exceeds capacity %d", p, capacity)
	}
	if got := e.Available(); got != capacity {
		t.Errorf("Available after drain = %d, want %d", got, capacity)
	}
}

func TestWait_WokenByCompletion(t *testing.T) {
	e, _ := New(1)

	block := make(chan struct{})
	if _, err := e.Execute(func() error { <-block; return nil }); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	woken := make(chan struct{})
	go func() {
		if err := e.Wait(context.Background()); err != nil {
			t.Errorf("Wait failed: %v", err)
		}
		close(woken)
	}()

	// The waiter must not return while the slot is held.
	select {
	case <-woken:
		t.Fatal("Wait returned while pool was full")
	case <-time.After(20 * time.Millisecond):
	}

	close(block)

	select {
	case <-woken:
	case <-time.After(time.Second):
		t.Fatal("Wait never woken after task completion")
	}
}

func TestWait_ContextCancel(t *testing.T) {
	e, _ := New(1)

	block := make(chan struct{})
	defer close(block)
	if _, err := e.Execute(func() error { <-block; return nil }); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- e.Wait(ctx)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Wait = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not observe cancellation")
	}
}

func TestWait_ImmediateWhenFree(t *testing.T) {
	e, _ := New(3)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := e.Wait(ctx); err != nil {
		t.Fatalf("Wait on idle pool failed: %v", err)
	}
}
