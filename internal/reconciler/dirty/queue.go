package dirty

import (
	"context"
	"sync"
)

// Queue is a FIFO of dirty regions that merges into its tail.
// Create queues with NewQueue.
type Queue struct {
	mu      sync.Mutex
	regions []Region
	stamp   uint64
	closed  bool

	// signal is closed and replaced whenever the queue changes.
	signal chan struct{}
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{signal: make(chan struct{})}
}

// Add appends r, merging it into the tail when the tail has the same type
// and r is adjacent to it. It reports whether a merge happened.
// Adding to a closed queue is a no-op.
func (q *Queue) Add(r Region) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	merged := false
	if n := len(q.regions); n > 0 && q.regions[n-1].adjacent(r) {
		q.regions[n-1].MergeWith(r)
		merged = true
	} else {
		q.regions = append(q.regions, r)
	}
	q.notify()
	return merged
}

// RemoveNext pops the head of the queue. It returns false if the queue is empty.
func (q *Queue) RemoveNext() (Region, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.regions) == 0 {
		return Region{}, false
	}
	r := q.regions[0]
	q.regions[0] = Region{}
	q.regions = q.regions[1:]
	if len(q.regions) == 0 {
		q.regions = nil
	}
	return r, true
}

// Size returns the number of queued regions after merging.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.regions)
}

// Purge discards every queued region.
func (q *Queue) Purge() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.regions = nil
	q.notify()
}

// Stamp returns a counter that changes with every Add and Purge.
// Consumers compare stamps to detect activity while debouncing.
func (q *Queue) Stamp() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stamp
}

// Changed returns a channel that is closed at the next Add, Purge or Close.
func (q *Queue) Changed() <-chan struct{} {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.signal
}

// Wait blocks until the queue is non-empty, the queue is closed or ctx is
// done. It returns ErrClosed once the queue is closed, even if regions were
// pending.
func (q *Queue) Wait(ctx context.Context) error {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return ErrClosed
		}
		if len(q.regions) > 0 {
			q.mu.Unlock()
			return nil
		}
		signal := q.signal
		q.mu.Unlock()

		select {
		case <-signal:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close purges the queue and wakes every waiter. Further Adds are ignored.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.regions = nil
	q.notify()
}

// Closed reports whether Close has been called.
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// notify must be called with mu held.
func (q *Queue) notify() {
	q.stamp++
	close(q.signal)
	q.signal = make(chan struct{})
}
