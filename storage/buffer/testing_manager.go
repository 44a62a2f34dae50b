package buffer

import (
	"io"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/HayatoShiba/ppcc/storage/disk"
)

// TestingMaxWait is max wait of the buffer manager for test. 10s is too long for test.
const TestingMaxWait = 200 * time.Millisecond

// TestingNewManager initializes the buffer manager on in-memory disk manager
// the logs are discarded
func TestingNewManager(poolSize int, opts ...Option) (*Manager, *disk.Manager, error) {
	dm, err := disk.TestingNewMemManager()
	if err != nil {
		return nil, nil, errors.Wrap(err, "disk.TestingNewMemManager failed")
	}
	opts = append([]Option{
		WithPoolSize(poolSize),
		WithMaxWait(TestingMaxWait),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	return NewManager(dm, nil, opts...), dm, nil
}

// TestingNewManagerWithIO initializes the buffer manager on the given I/O and log flusher
func TestingNewManagerWithIO(poolSize int, dm BlockIO, lf LogFlusher) *Manager {
	return NewManager(dm, lf,
		WithPoolSize(poolSize),
		WithMaxWait(TestingMaxWait),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}
