package notify

import (
	"sync"
)

// Buffer is a thread-safe event queue that doubles its capacity when it
// reaches 70% full, so a burst of sales never drops notifications.
type Buffer struct {
	mu       sync.Mutex
	cond     *sync.Cond
	buf      []Event
	head     int
	tail     int
	count    int
	capacity int
	closed   bool

	totalQueued    int64
	totalDelivered int64
	resizeCount    int
}

// NewBuffer creates a buffer with the given initial capacity.
func NewBuffer(initialCapacity int) *Buffer {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	b := &Buffer{
		buf:      make([]Event, initialCapacity),
		capacity: initialCapacity,
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Push queues an event, growing the buffer when it crosses 70% capacity.
// Returns false if the buffer is closed.
func (b *Buffer) Push(ev Event) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}

	threshold := (b.capacity * 70) / 100
	if threshold < 1 {
		threshold = 1
	}
	if b.count+1 >= threshold {
		b.grow()
	}

	b.buf[b.tail] = ev
	b.tail = (b.tail + 1) % b.capacity
	b.count++
	b.totalQueued++

	b.cond.Signal()
	return true
}

// Pop removes and returns the oldest event, blocking until one is available
// or the buffer is closed and drained.
func (b *Buffer) Pop() (Event, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for b.count == 0 && !b.closed {
		b.cond.Wait()
	}

	if b.count == 0 {
		return Event{}, false
	}

	ev := b.buf[b.head]
	b.buf[b.head] = Event{}
	b.head = (b.head + 1) % b.capacity
	b.count--
	b.totalDelivered++

	return ev, true
}

// Close stops further pushes. Pending events remain poppable.
func (b *Buffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.cond.Broadcast()
}

// Len returns the number of queued events.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Stats returns buffer statistics.
func (b *Buffer) Stats() BufferStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BufferStats{
		Count:          b.count,
		Capacity:       b.capacity,
		TotalQueued:    b.totalQueued,
		TotalDelivered: b.totalDelivered,
		ResizeCount:    b.resizeCount,
	}
}

// BufferStats contains buffer statistics.
type BufferStats struct {
	Count          int
	Capacity       int
	TotalQueued    int64
	TotalDelivered int64
	ResizeCount    int
}

// grow doubles the capacity. Caller holds the lock.
func (b *Buffer) grow() {
	newBuf := make([]Event, b.capacity*2)

	if b.count > 0 {
		if b.head < b.tail {
			copy(newBuf, b.buf[b.head:b.tail])
		} else {
			n := copy(newBuf, b.buf[b.head:])
			copy(newBuf[n:], b.buf[:b.tail])
		}
	}

	b.buf = newBuf
	b.head = 0
	b.tail = b.count
	b.capacity *= 2
	b.resizeCount++
}
