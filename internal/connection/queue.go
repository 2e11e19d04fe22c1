package connection

import (
	"context"
	"sync"

	"github.com/yamcs-studio/yamcs-ws/internal/request"
)

// eventQueue is an unbounded FIFO of outgoing requests. It doubles its
// capacity when it reaches 70% full, so Push never blocks.
type eventQueue struct {
	mu    sync.Mutex
	buf   []request.Event
	head  int // read position
	tail  int // write position
	count int

	// Wakes a waiting Take; holds at most one token.
	notify chan struct{}

	// Stats
	totalReceived int64
	resizeCount   int
}

func newEventQueue(initialCapacity int) *eventQueue {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	return &eventQueue{
		buf:    make([]request.Event, initialCapacity),
		notify: make(chan struct{}, 1),
	}
}

// Push appends an event.
func (q *eventQueue) Push(evt request.Event) {
	q.mu.Lock()
	threshold := (len(q.buf) * 70) / 100
	if threshold < 1 {
		threshold = 1
	}
	if q.count+1 >= threshold {
		q.grow()
	}

	q.buf[q.tail] = evt
	q.tail = (q.tail + 1) % len(q.buf)
	q.count++
	q.totalReceived++
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Take removes the head, blocking until one is available or ctx is done.
func (q *eventQueue) Take(ctx context.Context) (request.Event, error) {
	for {
		q.mu.Lock()
		if q.count > 0 {
			evt := q.pop()
			q.mu.Unlock()
			return evt, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.notify:
		}
	}
}

// MergeInto folds queued events into acc for as long as the head is
// compatible. It returns the merged event and how many events it consumed.
func (q *eventQueue) MergeInto(acc request.Event) (request.Event, int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	merged := 0
	for q.count > 0 && acc.CanMergeWith(q.buf[q.head]) {
		acc = acc.MergeWith(q.pop())
		merged++
	}
	return acc, merged
}

// Len returns the number of queued events.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Stats returns the number of events ever pushed and how often the buffer grew.
func (q *eventQueue) Stats() (received int64, resizes int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.totalReceived, q.resizeCount
}

// pop removes the head. Caller holds q.mu and has checked count > 0.
func (q *eventQueue) pop() request.Event {
	evt := q.buf[q.head]
	q.buf[q.head] = nil // Clear reference for GC
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	return evt
}

// grow doubles the capacity. Caller holds q.mu.
func (q *eventQueue) grow() {
	newCap := len(q.buf) * 2
	newBuf := make([]request.Event, newCap)

	for i := 0; i < q.count; i++ {
		newBuf[i] = q.buf[(q.head+i)%len(q.buf)]
	}

	q.buf = newBuf
	q.head = 0
	q.tail = q.count
	q.resizeCount++
}
