package spool

import "sync"

// Queue is a bounded FIFO buffer of pending points.
//
// Enqueue happens on the item bus delivery path and must never block,
// so back-pressure is handled by bounded dropping: when the queue is at
// capacity the oldest entry is evicted to make room. Evictions are
// counted and reported via Dropped rather than raised as errors.
//
// Insertion order is preserved throughout, including across Requeue,
// so writes stay chronological per item.
//
// Thread Safety: all methods are safe for concurrent use. A single
// mutex serialises Enqueue, Drain and Requeue; given the low expected
// throughput no lock-free structure is warranted.
type Queue struct {
	mu      sync.Mutex
	points  []Point
	max     int
	dropped uint64
}

// NewQueue creates a queue with the given capacity.
// A non-positive capacity is treated as 1.
func NewQueue(max int) *Queue {
	if max < 1 {
		max = 1
	}
	return &Queue{
		points: make([]Point, 0, max),
		max:    max,
	}
}

// Enqueue appends a point at the tail.
//
// If the queue is at capacity the oldest entry is evicted first and the
// dropped counter incremented. Enqueue is O(1) amortised, never blocks
// on I/O and never errors.
func (q *Queue) Enqueue(p Point) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.points) >= q.max {
		evict := len(q.points) - q.max + 1
		q.points = q.points[evict:]
		q.dropped += uint64(evict)
	}
	q.points = append(q.points, p)
}

// Drain atomically removes and returns up to max oldest entries,
// leaving the remainder at the head. Draining an empty queue returns
// an empty batch.
func (q *Queue) Drain(max int) []Point {
	q.mu.Lock()
	defer q.mu.Unlock()

	if max <= 0 || len(q.points) == 0 {
		return nil
	}
	if max > len(q.points) {
		max = len(q.points)
	}

	batch := make([]Point, max)
	copy(batch, q.points[:max])
	rest := len(q.points) - max
	copy(q.points, q.points[max:])
	q.points = q.points[:rest]

	return batch
}

// Requeue reinserts a previously drained batch at the head, preserving
// its original order, so retried writes stay chronologically ahead of
// newer arrivals.
//
// If the combined length exceeds capacity the oldest entries are
// evicted; since the requeued batch is older than everything queued,
// eviction starts at its front. The capacity invariant always holds.
func (q *Queue) Requeue(batch []Point) {
	if len(batch) == 0 {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	total := len(batch) + len(q.points)
	if total > q.max {
		evict := total - q.max
		if evict >= len(batch) {
			// Pathological: the batch alone no longer fits in front of
			// the queued points. Drop the whole batch.
			q.dropped += uint64(len(batch))
			return
		}
		batch = batch[evict:]
		q.dropped += uint64(evict)
	}

	merged := make([]Point, 0, len(batch)+len(q.points))
	merged = append(merged, batch...)
	merged = append(merged, q.points...)
	q.points = merged
}

// Len returns the number of queued points.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.points)
}

// Dropped returns the cumulative number of points lost to capacity
// eviction since the queue was created.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Cap returns the configured maximum queue size.
func (q *Queue) Cap() int {
	return q.max
}
