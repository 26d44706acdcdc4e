package delaymap

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments a DelayMap. A nil *Metrics records nothing.
type Metrics struct {
	Pending    prometheus.Gauge
	Inserted   prometheus.Counter
	Duplicates prometheus.Counter
	Removed    prometheus.Counter
	Expired    prometheus.Counter
	Lag        prometheus.Histogram
}

// NewMetrics creates the collectors of a DelayMap and registers them
// on reg, prefixed with namespace.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Pending: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_items",
			Help:      "The number of items waiting for their timeout.",
		}),
		Inserted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inserted_total",
			Help:      "The total count of inserted items.",
		}),
		Duplicates: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_total",
			Help:      "The total count of inserts rejected because the item was already pending.",
		}),
		Removed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "removed_total",
			Help:      "The total count of items removed before their timeout.",
		}),
		Expired: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expired_total",
			Help:      "The total count of expired items.",
		}),
		Lag: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "expiration_lag_milliseconds",
			Help:      "The time elapsed between an item deadline and its consumption.",
			Buckets:   []float64{0.1, 1, 10, 100, 1000, 10000},
		}),
	}
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func (m *Metrics) inserted() {
	if m == nil {
		return
	}
	m.Inserted.Inc()
	m.Pending.Inc()
}

func (m *Metrics) duplicate() {
	if m == nil {
		return
	}
	m.Duplicates.Inc()
}

func (m *Metrics) removed() {
	if m == nil {
		return
	}
	m.Removed.Inc()
	m.Pending.Dec()
}

func (m *Metrics) expired(lag time.Duration) {
	if m == nil {
		return
	}
	m.Expired.Inc()
	m.Pending.Dec()
	m.Lag.Observe(milliseconds(lag))
}
