package queue

import "sync"

// Queue is a generic FIFO queue that can hold any type. It is safe for
// concurrent use. A positive capacity bounds the queue: enqueueing into a
// full queue drops the oldest element.
type Queue[T any] struct {
	mu       sync.Mutex
	items    []T
	capacity int
}

// New creates and returns a new unbounded Queue instance.
func New[T any]() *Queue[T] {
	return &Queue[T]{items: []T{}}
}

// NewBounded creates a Queue holding at most capacity elements.
func NewBounded[T any](capacity int) *Queue[T] {
	return &Queue[T]{items: make([]T, 0, capacity), capacity: capacity}
}

// Enqueue adds an element to the end of the queue.
// It reports whether an older element was evicted to make room.
func (q *Queue[T]) Enqueue(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	evicted := false
	if q.capacity > 0 && len(q.items) >= q.capacity {
		q.items = q.items[1:]
		evicted = true
	}
	q.items = append(q.items, item)
	return evicted
}

// Dequeue removes and returns the front element of the queue.
// The boolean indicates whether an element was dequeued (false if the queue was empty).
func (q *Queue[T]) Dequeue() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		var zero T
		return zero, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// Peek returns the front element without removing it from the queue.
func (q *Queue[T]) Peek() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		var zero T
		return zero, false
	}
	return q.items[0], true
}

// Snapshot returns a copy of the queued elements, front first.
func (q *Queue[T]) Snapshot() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]T, len(q.items))
	copy(out, q.items)
	return out
}

// Len returns the number of elements in the queue.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// IsEmpty returns true if the queue is empty.
func (q *Queue[T]) IsEmpty() bool {
	return q.Len() == 0
}
