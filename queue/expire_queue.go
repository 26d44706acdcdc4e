package queue

import "time"

type entry[T any] struct {
	key      Key
	item     T
	deadline time.Time
	index    int // position in the heap, -1 once popped
}

// expireQueue is a min-heap of entries ordered by deadline.
// Entries with equal deadlines keep insertion order.
type expireQueue[T any] []*entry[T]

func newExpQueue[T any]() *expireQueue[T] {
	x := make(expireQueue[T], 0)
	return &x
}

// heap.Interface
func (q expireQueue[T]) Len() int { return len(q) }

func (q expireQueue[T]) Less(i, j int) bool {
	if q[i].deadline.Equal(q[j].deadline) {
		return q[i].key.id < q[j].key.id
	}
	return q[i].deadline.Before(q[j].deadline)
}

func (q expireQueue[T]) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *expireQueue[T]) Push(x any) {
	e := x.(*entry[T])
	e.index = len(*q)
	*q = append(*q, e)
}

func (q *expireQueue[T]) Pop() any {
	qcopy := *q
	n := len(qcopy)
	e := qcopy[n-1]
	qcopy[n-1] = nil // avoid memory leak
	e.index = -1

	*q = qcopy[0 : n-1]
	return e
}

func (q expireQueue[T]) peek() *entry[T] {
	if len(q) == 0 {
		return nil
	}
	return q[0]
}
