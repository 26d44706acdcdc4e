package delaymap

import (
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/dartt0n/delaymap/queue"
)

type Option func(o *options)

type options struct {
	logger   *zap.Logger
	clock    clockwork.Clock
	mapLimit uint64
	metrics  *Metrics
}

func defaultOpts() options {
	return options{
		logger:   zap.NewNop(),
		clock:    clockwork.NewRealClock(),
		mapLimit: queue.DefaultMapLimit, // shrink maps after every 10k deletions
	}
}

// WithLogger sets the logger used to trace inserts, removals and expirations.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock sets the time source deadlines are computed and awaited with.
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithMapLimit sets how many deletions the internal maps tolerate before
// they are shrunk.
func WithMapLimit(limit uint64) Option {
	return func(o *options) {
		o.mapLimit = limit
	}
}

func WithMetrics(metrics *Metrics) Option {
	return func(o *options) {
		o.metrics = metrics
	}
}
