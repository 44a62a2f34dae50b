package lock

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/HayatoShiba/ppcc/logging"
)

// defaultMaxWait is how long lock request waits at most
const defaultMaxWait = 10 * time.Second

type options struct {
	maxWait    time.Duration
	registerer prometheus.Registerer
	logger     *slog.Logger
}

// Option configures Table
type Option func(*options)

// WithMaxWait sets how long SLock/XLock wait at most
func WithMaxWait(d time.Duration) Option {
	return func(o *options) {
		o.maxWait = d
	}
}

// WithMetrics registers the lock metrics to the registerer
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

func newOptions(opts []Option) options {
	o := options{
		maxWait: defaultMaxWait,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.WithComponent("lock")
	}
	return o
}
