package lock

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is prometheus metrics of lock table
type Metrics struct {
	// Grants counts granted lock requests by mode
	Grants *prometheus.CounterVec
	// Aborts counts aborted lock requests by reason
	Aborts *prometheus.CounterVec
	// Waits counts lock requests which had to wait, by mode
	Waits *prometheus.CounterVec
}

// NewMetrics initializes the metrics
// when reg is nil, the metrics are not registered
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Grants: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ppcc",
			Subsystem: "lock",
			Name:      "grants_total",
			Help:      "The number of granted lock requests by mode.",
		}, []string{"mode"}),
		Aborts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ppcc",
			Subsystem: "lock",
			Name:      "aborts_total",
			Help:      "The number of aborted lock requests by reason.",
		}, []string{"reason"}),
		Waits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ppcc",
			Subsystem: "lock",
			Name:      "waits_total",
			Help:      "The number of lock requests which waited for other transactions.",
		}, []string{"mode"}),
	}
}

// Metrics returns the metrics of lock table
func (t *Table) Metrics() *Metrics {
	return t.metrics
}
