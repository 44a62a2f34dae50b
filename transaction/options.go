package transaction

import (
	"log/slog"
	"time"

	"github.com/HayatoShiba/ppcc/logging"
	"github.com/HayatoShiba/ppcc/transaction/clog"
)

const (
	// defaultMaxRetries is how many times the transaction killed by wait-die is restarted
	defaultMaxRetries = 5
	// defaultRetryBase is the base delay of exponential backoff between the restarts
	defaultRetryBase = 10 * time.Millisecond
)

type options struct {
	clog       *clog.Manager
	maxRetries uint64
	retryBase  time.Duration
	logger     *slog.Logger
}

// Option configures Manager
type Option func(*options)

// WithClog records the outcome of transactions in clog
func WithClog(cl *clog.Manager) Option {
	return func(o *options) {
		o.clog = cl
	}
}

// WithRetry sets how RunTx restarts the aborted transaction
func WithRetry(maxRetries uint64, base time.Duration) Option {
	return func(o *options) {
		o.maxRetries = maxRetries
		if base > 0 {
			o.retryBase = base
		}
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
		maxRetries: defaultMaxRetries,
		retryBase:  defaultRetryBase,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.WithComponent("transaction")
	}
	return o
}
