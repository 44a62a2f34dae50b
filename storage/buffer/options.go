package buffer

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/HayatoShiba/ppcc/logging"
)

const (
	// defaultPoolSize is the number of buffers when WithPoolSize is not given
	defaultPoolSize = 8
	// defaultMaxWait is how long Pin waits for a free buffer at most
	defaultMaxWait = 10 * time.Second
)

type options struct {
	poolSize   int
	maxWait    time.Duration
	registerer prometheus.Registerer
	logger     *slog.Logger
}

// Option configures Manager
type Option func(*options)

// WithPoolSize sets the number of buffers. non-positive size is ignored.
func WithPoolSize(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.poolSize = size
		}
	}
}

// WithMaxWait sets how long Pin waits for a free buffer at most
func WithMaxWait(d time.Duration) Option {
	return func(o *options) {
		o.maxWait = d
	}
}

// WithMetrics registers the buffer metrics to the registerer
// when not given, the metrics are collected but not registered anywhere
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
		poolSize: defaultPoolSize,
		maxWait:  defaultMaxWait,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.WithComponent("buffer")
	}
	return o
}
