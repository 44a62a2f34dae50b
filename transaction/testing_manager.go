package transaction

import (
	"io"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/HayatoShiba/ppcc/storage/buffer"
	"github.com/HayatoShiba/ppcc/transaction/clog"
	"github.com/HayatoShiba/ppcc/transaction/lock"
	"github.com/HayatoShiba/ppcc/transaction/txid"
)

// TestingNewManager initializes transaction manager with in-memory buffer pool and clog
func TestingNewManager(poolSize int, opts ...Option) (*Manager, error) {
	bm, _, err := buffer.TestingNewManager(poolSize)
	if err != nil {
		return nil, errors.Wrap(err, "buffer.TestingNewManager failed")
	}
	cl, err := clog.TestingNewManager()
	if err != nil {
		return nil, errors.Wrap(err, "clog.TestingNewManager failed")
	}
	opts = append([]Option{
		WithClog(cl),
		WithRetry(5, time.Millisecond),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	return NewManager(txid.NewManager(), lock.TestingNewTable(), bm, opts...), nil
}
