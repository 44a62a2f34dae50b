package buffer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	pinResultHit  = "hit"
	pinResultMiss = "miss"
)

// Metrics is prometheus metrics of buffer pool
type Metrics struct {
	// Pins counts successful pins by result (hit: the block was resident, miss: the block was read)
	Pins *prometheus.CounterVec
	// Evictions counts blocks evicted from buffers for reuse
	Evictions prometheus.Counter
	// PinWaits counts pins which had to wait for a free buffer
	PinWaits prometheus.Counter
	// PinTimeouts counts pins which failed with ErrBufferUnavailable
	PinTimeouts prometheus.Counter
	// Flushes counts pages written out
	Flushes prometheus.Counter
	// Available is the number of unpinned buffers
	Available prometheus.Gauge
}

// NewMetrics initializes the metrics
// when reg is nil, the metrics are not registered
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Pins: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ppcc",
			Subsystem: "buffer",
			Name:      "pins_total",
			Help:      "The number of pins by result.",
		}, []string{"result"}),
		Evictions: f.NewCounter(prometheus.CounterOpts{
			Namespace: "ppcc",
			Subsystem: "buffer",
			Name:      "evictions_total",
			Help:      "The number of blocks evicted for buffer reuse.",
		}),
		PinWaits: f.NewCounter(prometheus.CounterOpts{
			Namespace: "ppcc",
			Subsystem: "buffer",
			Name:      "pin_waits_total",
			Help:      "The number of pins which waited for an unpinned buffer.",
		}),
		PinTimeouts: f.NewCounter(prometheus.CounterOpts{
			Namespace: "ppcc",
			Subsystem: "buffer",
			Name:      "pin_timeouts_total",
			Help:      "The number of pins which gave up waiting.",
		}),
		Flushes: f.NewCounter(prometheus.CounterOpts{
			Namespace: "ppcc",
			Subsystem: "buffer",
			Name:      "flushes_total",
			Help:      "The number of pages written out.",
		}),
		Available: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "ppcc",
			Subsystem: "buffer",
			Name:      "available",
			Help:      "The number of unpinned buffers.",
		}),
	}
}

// Metrics returns the metrics of the buffer pool
func (m *Manager) Metrics() *Metrics {
	return m.metrics
}
