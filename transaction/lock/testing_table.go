package lock

import (
	"io"
	"log/slog"
	"time"
)

// TestingMaxWait is max wait of the lock table for test. 10s is too long for test.
const TestingMaxWait = 200 * time.Millisecond

// TestingNewTable initializes lock table for test
// the logs are discarded
func TestingNewTable(opts ...Option) *Table {
	opts = append([]Option{
		WithMaxWait(TestingMaxWait),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	return NewTable(opts...)
}
