package server

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dartt0n/delaymap"
)

// DefaultHistory is the number of expired keys a Tracker keeps until
// they are collected with Expired.
const DefaultHistory = 1024

// Tracker is the single consumer of a DelayMap of keys.
// It records the keys as they expire so that they can be collected later.
type Tracker struct {
	timeouts *delaymap.DelayMap[string]
	// kick is signalled after every successful insert,
	// so that an idle Run loop starts waiting on the map again.
	kick     chan struct{}

	mu      sync.Mutex
	expired []string
	history int

	logger *zap.Logger
}

func NewTracker(timeouts *delaymap.DelayMap[string], history int, logger *zap.Logger) *Tracker {
	if history <= 0 {
		history = DefaultHistory
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Tracker{
		timeouts: timeouts,
		kick:     make(chan struct{}, 1),
		expired:  make([]string, 0),
		history:  history,
		logger:   logger,
	}
}

// Insert starts the timeout of key. It returns false if key is already pending.
func (t *Tracker) Insert(key string, ttl time.Duration) bool {
	if !t.timeouts.Insert(key, ttl) {
		return false
	}

	select {
	case t.kick <- struct{}{}:
	default:
	}

	return true
}

// Remove cancels the timeout of key. It returns false if key is not pending.
func (t *Tracker) Remove(key string) bool {
	return t.timeouts.Remove(key)
}

// Expired returns the keys which expired since the previous call,
// oldest first.
func (t *Tracker) Expired() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := t.expired
	t.expired = make([]string, 0)

	return out
}

func (t *Tracker) record(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.expired) == t.history {
		t.logger.Warn("expired keys history is full, dropping oldest key", zap.String("key", t.expired[0]))
		t.expired = t.expired[1:]
	}
	t.expired = append(t.expired, key)
}

// Run consumes expired keys until ctx is done.
func (t *Tracker) Run(ctx context.Context) {
	t.logger.Info("starting timeout tracker")
	defer t.logger.Info("timeout tracker stopped")

	for {
		if key, ok := t.timeouts.Next(ctx); ok {
			t.logger.Info("key expired", zap.String("key", key))
			t.record(key)
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-t.kick:
		}
	}
}
