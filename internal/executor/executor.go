package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNoSlotAvailable is returned by Execute when every slot is occupied.
var ErrNoSlotAvailable = errors.New("no slot available")

// Task is a unit of work run in an execution slot.
type Task func() error

// Executor runs up to capacity tasks concurrently.
type Executor struct {
	mu        sync.Mutex
	capacity  int
	available int
	waiters   []chan struct{} // FIFO; one waiter woken per released slot
}

// New creates an Executor with the given slot capacity.
func New(capacity int) (*Executor, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("capacity must be >= 1, got %d", capacity)
	}
	return &Executor{
		capacity:  capacity,
		available: capacity,
	}, nil
}

// Capacity returns the total number of slots.
func (e *Executor) Capacity() int {
	return e.capacity
}

// Available returns the number of currently free slots.
func (e *Executor) Available() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.available
}

// Wait blocks until at least one slot is free or ctx is done. It does not
// reserve the slot: a subsequent Execute may still lose a race with another
// caller and fail with ErrNoSlotAvailable.
func (e *Executor) Wait(ctx context.Context) error {
	for {
		e.mu.Lock()
		if e.available > 0 {
			e.mu.Unlock()
			return nil
		}
		ch := make(chan struct{})
		e.waiters = append(e.waiters, ch)
		e.mu.Unlock()

		select {
		case <-ch:
			// A slot was released; re-check availability since another
			// caller may have claimed it already.
		case <-ctx.Done():
			e.removeWaiter(ch)
			return ctx.Err()
		}
	}
}

// Execute reserves a slot and runs task in its own goroutine. It returns
// ErrNoSlotAvailable if no slot is free at call time. The returned channel
// delivers the task's own result once it completes; the slot is released and
// one pending Wait caller is woken regardless of the task outcome.
func (e *Executor) Execute(task Task) (<-chan error, error) {
	e.mu.Lock()
	if e.available <= 0 {
		e.mu.Unlock()
		return nil, ErrNoSlotAvailable
	}
	e.available--
	e.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		err := task()
		e.release()
		done <- err
	}()
	return done, nil
}

// release frees a slot and wakes the oldest waiter, if any.
func (e *Executor) release() {
	e.mu.Lock()
	e.available++
	if len(e.waiters) > 0 {
		ch := e.waiters[0]
		e.waiters = e.waiters[1:]
		close(ch)
	}
	e.mu.Unlock()
}

// removeWaiter drops a cancelled waiter so a release does not wake a caller
// that already gave up.
func (e *Executor) removeWaiter(ch chan struct{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, w := range e.waiters {
		if w == ch {
			e.waiters = append(e.waiters[:i], e.waiters[i+1:]...)
			return
		}
	}
}
