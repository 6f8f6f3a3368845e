// Package deferq holds outbound operations that could not run yet and
// replays them later in the order they were added.
package deferq

// Queue is an unbounded FIFO of pending items. It is not safe for
// concurrent use.
type Queue[T any] struct {
	items []T
}

// New returns an empty queue.
func New[T any]() *Queue[T] {
	q := &Queue[T]{}
	q.Reset()
	return q
}

// Add appends item to the tail and returns the new length.
func (q *Queue[T]) Add(item T) int {
	q.items = append(q.items, item)
	return len(q.items)
}

// FireAll hands every queued item to fire in enqueue order, exactly once.
// The queue is emptied before the first call, so items added while firing
// are kept for the next FireAll.
func (q *Queue[T]) FireAll(fire func(T)) {
	items := q.items
	q.items = nil
	for _, item := range items {
		fire(item)
	}
}

// Reset drops every queued item without firing it.
func (q *Queue[T]) Reset() {
	q.items = nil
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	return len(q.items)
}
