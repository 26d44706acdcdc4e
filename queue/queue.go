// Package queue implements a deadline-ordered queue of items.
//
// Every inserted item gets a Key which can later be used to cancel it.
// Items are popped in deadline order by Poll once their deadline has
// elapsed. Consumers wait for the earliest deadline with WaitUntil, which
// is woken up early whenever the head of the queue changes.
package queue

import (
	"container/heap"
	"context"
	"sync"
	"time"

	smap "github.com/go-auxiliaries/shrinking-map/pkg/shrinking-map"
	"github.com/jonboulle/clockwork"
)

// Key identifies one pending entry of a Queue. The zero Key never
// identifies an entry.
type Key struct {
	id uint64
}

// Expired is an entry popped from the queue.
type Expired[T any] struct {
	Key      Key
	Item     T
	Deadline time.Time
}

type Queue[T any] struct {
	mu sync.Mutex

	clock clockwork.Clock
	heap  *expireQueue[T]
	// Queue.slots maps key ids to their heap entries, so that a key
	// can be cancelled without scanning the heap.
	slots *smap.Map[uint64, *entry[T]]
	seq   uint64

	// changed is closed and dropped whenever the head of the queue may
	// have moved. It is allocated lazily by Changed.
	changed chan struct{}
}

// New returns an empty queue.
func New[T any](opts ...Option) *Queue[T] {
	o := defaultOpts()
	for _, opt := range opts {
		opt(&o)
	}

	q := &Queue[T]{
		clock: o.clock,
		heap:  newExpQueue[T](),
		slots: smap.New[uint64, *entry[T]](o.mapLimit),
	}
	heap.Init(q.heap)

	return q
}

// Clock returns the time source of the queue.
func (q *Queue[T]) Clock() clockwork.Clock {
	return q.clock
}

// Insert schedules item to expire after delay. Negative delays are
// treated as zero.
func (q *Queue[T]) Insert(item T, delay time.Duration) Key {
	if delay < 0 {
		delay = 0
	}
	return q.InsertAt(item, q.clock.Now().Add(delay))
}

// InsertAt schedules item to expire at deadline.
func (q *Queue[T]) InsertAt(item T, deadline time.Time) Key {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.seq++
	e := &entry[T]{
		key:      Key{id: q.seq},
		item:     item,
		deadline: deadline,
	}
	heap.Push(q.heap, e)
	q.slots.Set(e.key.id, e)

	if e.index == 0 {
		q.notify()
	}

	return e.key
}

// Remove cancels the entry identified by key and returns its item.
// It returns false if the entry already expired or was removed.
func (q *Queue[T]) Remove(key Key) (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	e, ok := q.slots.Get2(key.id)
	if !ok {
		return *new(T), false
	}

	wasHead := e.index == 0
	heap.Remove(q.heap, e.index)
	q.slots.Delete(key.id)

	if wasHead {
		q.notify()
	}

	return e.item, true
}

// Peek returns the earliest deadline in the queue.
func (q *Queue[T]) Peek() (time.Time, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	head := q.heap.peek()
	if head == nil {
		return time.Time{}, false
	}
	return head.deadline, true
}

// Poll pops the earliest entry if its deadline has elapsed.
// It never blocks.
func (q *Queue[T]) Poll() (Expired[T], bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	head := q.heap.peek()
	if head == nil || head.deadline.After(q.clock.Now()) {
		return Expired[T]{}, false
	}

	heap.Pop(q.heap)
	q.slots.Delete(head.key.id)
	q.notify()

	return Expired[T]{Key: head.key, Item: head.item, Deadline: head.deadline}, true
}

// Changed returns a channel which is closed the next time the head of
// the queue may have changed.
func (q *Queue[T]) Changed() <-chan struct{} {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.changedLocked()
}

// WaitUntil blocks until deadline, until changed is closed or until ctx
// is done. It returns false only when ctx is done.
func (q *Queue[T]) WaitUntil(ctx context.Context, deadline time.Time, changed <-chan struct{}) bool {
	wait := deadline.Sub(q.clock.Now())
	if wait <= 0 {
		return ctx.Err() == nil
	}

	timer := q.clock.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-changed:
		return true
	case <-timer.Chan():
		return true
	}
}

// Len returns the number of pending entries.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.heap.Len()
}

// IsEmpty reports whether the queue holds no pending entries.
func (q *Queue[T]) IsEmpty() bool {
	return q.Len() == 0
}

func (q *Queue[T]) changedLocked() chan struct{} {
	if q.changed == nil {
		q.changed = make(chan struct{})
	}
	return q.changed
}

func (q *Queue[T]) notify() {
	if q.changed != nil {
		close(q.changed)
		q.changed = nil
	}
}
