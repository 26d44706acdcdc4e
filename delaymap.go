// Package delaymap associates items with a timeout.
//
// A DelayMap keeps two indexes over the same items: a key index used to
// deduplicate and cancel items, and a deadline-ordered queue from which
// items are consumed as they expire. Both are updated together by every
// operation, so an item is pending in one if and only if it is pending
// in the other.
//
//	m := delaymap.New[string]()
//	m.Insert("session-1", 10*time.Second)
//	m.Insert("session-2", 5*time.Second)
//
//	for {
//		expired, ok := m.Next(ctx)
//		if !ok {
//			break
//		}
//		fmt.Println(expired) // session-2, then session-1
//	}
package delaymap

import (
	"context"
	"sync"
	"time"

	smap "github.com/go-auxiliaries/shrinking-map/pkg/shrinking-map"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/dartt0n/delaymap/queue"
)

type DelayMap[T comparable] struct {
	mu sync.Mutex

	// DelayMap.index maps every pending item to the key of its queue entry.
	// It is a shrinking map, which shrinks every "limit" (WithMapLimit option) deletions.
	index *smap.Map[T, queue.Key]
	// DelayMap.queue holds the items ordered by deadline.
	queue *queue.Queue[T]

	logger  *zap.Logger
	metrics *Metrics
}

// New returns an empty DelayMap configured with opts.
func New[T comparable](opts ...Option) *DelayMap[T] {
	o := defaultOpts()
	for _, opt := range opts {
		opt(&o)
	}

	return &DelayMap[T]{
		index:   smap.New[T, queue.Key](o.mapLimit),
		queue:   queue.New[T](queue.WithClock(o.clock), queue.WithMapLimit(o.mapLimit)),
		logger:  o.logger,
		metrics: o.metrics,
	}
}

// Insert schedules item to expire after delay.
// If item is already pending, nothing changes and false is returned:
// the original timeout is kept, not extended.
func (m *DelayMap[T]) Insert(item T, delay time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.index.Get2(item); exists {
		m.logger.Debug("item already pending", zap.Any("item", item))
		m.metrics.duplicate()
		return false
	}

	key := m.queue.Insert(item, delay)
	m.index.Set(item, key)

	m.logger.Debug("item inserted", zap.Any("item", item), zap.Duration("delay", delay))
	m.metrics.inserted()

	return true
}

// Remove cancels the timeout of item.
// It returns false if item was not pending, either because it was never
// inserted, was already removed or already expired.
func (m *DelayMap[T]) Remove(item T) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	key, exists := m.index.Get2(item)
	if !exists {
		return false
	}
	m.index.Delete(item)

	if _, ok := m.queue.Remove(key); !ok {
		panic(errors.Errorf("delaymap: item %v is indexed but has no pending timeout", item))
	}

	m.logger.Debug("item removed", zap.Any("item", item))
	m.metrics.removed()

	return true
}

// Next waits for the earliest pending item to expire, removes it and
// returns it.
//
// Next returns false without waiting when nothing is pending. It also
// returns false if the last pending item is removed while waiting, or
// if ctx is done; in the latter case nothing is removed and ctx.Err()
// tells both cases apart. Items inserted while Next is waiting are taken
// into account, so an item with a shorter delay is returned first.
//
// Calling Next again after it returned false resumes the sequence with
// whatever was inserted meanwhile.
func (m *DelayMap[T]) Next(ctx context.Context) (T, bool) {
	for {
		m.mu.Lock()
		if exp, ok := m.queue.Poll(); ok {
			m.expire(exp)
			m.mu.Unlock()
			return exp.Item, true
		}

		deadline, pending := m.queue.Peek()
		if !pending {
			m.mu.Unlock()
			return *new(T), false
		}
		changed := m.queue.Changed()
		m.mu.Unlock()

		if !m.queue.WaitUntil(ctx, deadline, changed) {
			return *new(T), false
		}
	}
}

// IsEmpty reports whether no item is pending. It never blocks, and can
// guard a call to Next that must not return early on an empty map.
func (m *DelayMap[T]) IsEmpty() bool {
	return m.queue.IsEmpty()
}

// expire drops an item popped from the queue from the key index.
// It must be called with m.mu held.
func (m *DelayMap[T]) expire(exp queue.Expired[T]) {
	key, exists := m.index.Get2(exp.Item)
	if !exists || key != exp.Key {
		panic(errors.Errorf("delaymap: expired item %v is not indexed by its queue key", exp.Item))
	}
	m.index.Delete(exp.Item)

	lag := m.queue.Clock().Since(exp.Deadline)
	m.logger.Debug("item expired", zap.Any("item", exp.Item), zap.Duration("lag", lag))
	m.metrics.expired(lag)
}
