package queue

import "github.com/jonboulle/clockwork"

// DefaultMapLimit is the number of deletions after which the
// key slots of a queue are shrunk.
const DefaultMapLimit uint64 = 10000

type Option func(o *options)

type options struct {
	clock    clockwork.Clock
	mapLimit uint64
}

func defaultOpts() options {
	return options{
		clock:    clockwork.NewRealClock(),
		mapLimit: DefaultMapLimit,
	}
}

// WithClock sets the time source used to compute deadlines and to wait
// for them. A nil clock is ignored.
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithMapLimit sets how many deletions the key slots tolerate before
// they are shrunk.
func WithMapLimit(limit uint64) Option {
	return func(o *options) {
		o.mapLimit = limit
	}
}
