package taskqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ahwatch/auction-data/internal/executor"
)

// fakeQueue is an in-memory Queue with peek-lock semantics. Receive counts
// deliveries; Unlock makes the message immediately receivable again.
type fakeQueue struct {
	mu       sync.Mutex
	ready    []*fakeMessage
	inflight map[string]*fakeMessage

	acked    []string
	unlocked []string

	receiveErr error // returned once when set
}

type fakeMessage struct {
	id         string
	body       []byte
	deliveries int
}

func newFakeQueue(bodies ...string) *fakeQueue {
	q := &fakeQueue{inflight: make(map[string]*fakeMessage)}
	for i, b := range bodies {
		q.ready = append(q.ready, &fakeMessage{id: fmt.Sprintf("m%d", i+1), body: []byte(b)})
	}
	return q
}

func (q *fakeQueue) Receive(ctx context.Context, timeout time.Duration) (Message, error) {
	q.mu.Lock()
	if err := q.receiveErr; err != nil {
		q.receiveErr = nil
		q.mu.Unlock()
		return Message{}, err
	}
	if len(q.ready) == 0 {
		q.mu.Unlock()
		return Message{}, ErrEmpty
	}
	fm := q.ready[0]
	q.ready = q.ready[1:]
	fm.deliveries++
	q.inflight[fm.id] = fm
	q.mu.Unlock()

	return Message{
		ID:            fm.id,
		Body:          fm.body,
		DeliveryCount: fm.deliveries,
		EnqueuedAt:    time.Now(),
		LockToken:     fmt.Sprintf("%s-lock-%d", fm.id, fm.deliveries),
	}, nil
}

func (q *fakeQueue) Ack(ctx context.Context, msg Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.inflight, msg.ID)
	q.acked = append(q.acked, msg.ID)
	return nil
}

func (q *fakeQueue) Unlock(ctx context.Context, msg Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	fm, ok := q.inflight[msg.ID]
	if !ok {
		return fmt.Errorf("message %s not in flight", msg.ID)
	}
	delete(q.inflight, msg.ID)
	q.ready = append(q.ready, fm)
	q.unlocked = append(q.unlocked, msg.ID)
	return nil
}

func (q *fakeQueue) snapshot() (acked, unlocked []string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.acked...), append([]string(nil), q.unlocked...)
}

func runWorker(t *testing.T, w *Worker, until func() bool) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	deadline := time.After(5 * time.Second)
	for !until() {
		select {
		case <-deadline:
			cancel()
			<-done
			t.Fatal("worker did not reach expected state in time")
		case <-time.After(time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ReceiveTimeout = 10 * time.Millisecond
	cfg.BackoffBase = time.Millisecond
	cfg.BackoffMax = 5 * time.Millisecond
	return cfg
}

func TestWorker_AcksOnSuccess(t *testing.T) {
	q := newFakeQueue("one", "two")
	exec, _ := executor.New(2)

	var handled atomic.Int64
	w := NewWorker(testConfig(), q, exec, HandlerFunc(func(ctx context.Context, body []byte) error {
		handled.Add(1)
		return nil
	}), nil)

	runWorker(t, w, func() bool {
		acked, _ := q.snapshot()
		return len(acked) == 2
	})

	if got := handled.Load(); got != 2 {
		t.Errorf("handler called %d times, want 2", got)
	}
	if _, unlocked := q.snapshot(); len(unlocked) != 0 {
		t.Errorf("unexpected unlocks: %v", unlocked)
	}
}

func TestWorker_PoisonQuarantine(t *testing.T) {
	q := newFakeQueue("bad")
	exec, _ := executor.New(1)

	var attempts atomic.Int64
	w := NewWorker(testConfig(), q, exec, HandlerFunc(func(ctx context.Context, body []byte) error {
		attempts.Add(1)
		return errors.New("always fails")
	}), nil)

	runWorker(t, w, func() bool {
		acked, _ := q.snapshot()
		return len(acked) == 1
	})

	// Deliveries 1-4 unlock for redelivery; delivery 5 hits the threshold
	// and is deleted instead.
	if got := attempts.Load(); got != 5 {
		t.Errorf("handler attempts = %d, want 5", got)
	}
	acked, unlocked := q.snapshot()
	if len(unlocked) != 4 {
		t.Errorf("unlocks = %d, want 4", len(unlocked))
	}
	if len(acked) != 1 || acked[0] != "m1" {
		t.Errorf("acked = %v, want [m1]", acked)
	}

	m := w.Stats()
	if m.Poisoned != 1 {
		t.Errorf("Poisoned = %d, want 1", m.Poisoned)
	}
	if m.Retried != 4 {
		t.Errorf("Retried = %d, want 4", m.Retried)
	}
}

func TestWorker_TransientFailureRetriesSamePath(t *testing.T) {
	q := newFakeQueue("flaky")
	exec, _ := executor.New(1)

	var attempts atomic.Int64
	w := NewWorker(testConfig(), q, exec, HandlerFunc(func(ctx context.Context, body []byte) error {
		if attempts.Add(1) < 3 {
			return Transient(errors.New("connection reset"))
		}
		return nil
	}), nil)

	runWorker(t, w, func() bool {
		acked, _ := q.snapshot()
		return len(acked) == 1
	})

	_, unlocked := q.snapshot()
	if len(unlocked) != 2 {
		t.Errorf("unlocks = %d, want 2", len(unlocked))
	}
}

func TestWorker_QueueErrorBacksOff(t *testing.T) {
	q := newFakeQueue("one")
	q.receiveErr = errors.New("connection refused")
	exec, _ := executor.New(1)

	w := NewWorker(testConfig(), q, exec, HandlerFunc(func(ctx context.Context, body []byte) error {
		return nil
	}), nil)

	runWorker(t, w, func() bool {
		acked, _ := q.snapshot()
		return len(acked) == 1
	})

	if m := w.Stats(); m.LoopError != 1 {
		t.Errorf("LoopError = %d, want 1", m.LoopError)
	}
}

func TestWorker_DispatchDoesNotBlockLoop(t *testing.T) {
	q := newFakeQueue("a", "b")
	exec, _ := executor.New(2)

	var inFlight, peak atomic.Int64
	release := make(chan struct{})
	w := NewWorker(testConfig(), q, exec, HandlerFunc(func(ctx context.Context, body []byte) error {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		<-release
		inFlight.Add(-1)
		return nil
	}), nil)

	go func() {
		// Both handlers should be running concurrently before either is
		// allowed to finish.
		deadline := time.After(2 * time.Second)
		for peak.Load() < 2 {
			select {
			case <-deadline:
				close(release)
				return
			case <-time.After(time.Millisecond):
			}
		}
		close(release)
	}()

	runWorker(t, w, func() bool {
		acked, _ := q.snapshot()
		return len(acked) == 2
	})

	if p := peak.Load(); p != 2 {
		t.Errorf("peak concurrent handlers = %d, want 2", p)
	}
}

func TestNextBackoff(t *testing.T) {
	base := time.Second
	max := 60 * time.Second

	cases := []struct {
		current time.Duration
		want    time.Duration
	}{
		{0, time.Second},
		{time.Second, 2 * time.Second},
		{16 * time.Second, 32 * time.Second},
		{32 * time.Second, 60 * time.Second},
		{60 * time.Second, 60 * time.Second},
	}

	for _, c := range cases {
		if got := nextBackoff(c.current, base, max); got != c.want {
			t.Errorf("nextBackoff(%v) = %v, want %v", c.current, got, c.want)
		}
	}
}

func TestIsTransient(t *testing.T) {
	cause := errors.New("timeout")
	err := fmt.Errorf("fetch feed: %w", Transient(cause))

	if !IsTransient(err) {
		t.Error("wrapped TransientError not detected")
	}
	if !errors.Is(err, cause) {
		t.Error("cause lost through Transient wrapper")
	}
	if IsTransient(errors.New("business failure")) {
		t.Error("plain error reported as transient")
	}
	if Transient(nil) != nil {
		t.Error("Transient(nil) should be nil")
	}
}
