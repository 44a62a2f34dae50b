package main

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"

	"github.com/HayatoShiba/ppcc/config"
	"github.com/HayatoShiba/ppcc/logging"
	"github.com/HayatoShiba/ppcc/storage/buffer"
	"github.com/HayatoShiba/ppcc/storage/disk"
	"github.com/HayatoShiba/ppcc/transaction"
	"github.com/HayatoShiba/ppcc/transaction/clog"
	"github.com/HayatoShiba/ppcc/transaction/lock"
	"github.com/HayatoShiba/ppcc/transaction/txid"
)

// clogPoolSize is the number of buffers for clog pages
const clogPoolSize = 2

// engine is the set of components built from configuration
type engine struct {
	dm  *disk.Manager
	bm  *buffer.Manager
	lt  *lock.Table
	cl  *clog.Manager
	txm *transaction.Manager
	// bw is nil when background writer is disabled
	bw *buffer.BackgroundWriter
}

// newEngine builds the components on the data directory
// the metrics are registered to reg if it's not nil
func newEngine(cfg *config.Config, fs afero.Fs, reg prometheus.Registerer) (*engine, error) {
	dm, err := disk.NewManager(fs, cfg.DataDir)
	if err != nil {
		return nil, errors.Wrap(err, "disk.NewManager failed")
	}
	bm := buffer.NewManager(dm, nil,
		buffer.WithPoolSize(cfg.Buffer.PoolSize),
		buffer.WithMaxWait(cfg.Buffer.MaxWait.Duration()),
		buffer.WithMetrics(reg),
	)
	lt := lock.NewTable(
		lock.WithMaxWait(cfg.Lock.MaxWait.Duration()),
		lock.WithMetrics(reg),
	)
	// clog pages are cached separately from data pages. the metrics are not registered
	// because the names collide with the buffer pool for data pages.
	clogBM := buffer.NewManager(dm, nil,
		buffer.WithPoolSize(clogPoolSize),
		buffer.WithMaxWait(cfg.Buffer.MaxWait.Duration()),
		buffer.WithLogger(logging.WithComponent("clog")),
	)
	cl := clog.NewManager(clogBM)
	txm := transaction.NewManager(txid.NewManager(), lt, bm,
		transaction.WithClog(cl),
		transaction.WithRetry(uint64(cfg.Txn.MaxRetries), cfg.Txn.RetryBase.Duration()),
	)

	e := &engine{
		dm:  dm,
		bm:  bm,
		lt:  lt,
		cl:  cl,
		txm: txm,
	}
	if cfg.Buffer.BGWriterDelay > 0 {
		e.bw = buffer.NewBackgroundWriter(bm, cfg.Buffer.BGWriterDelay.Duration(), cfg.Buffer.BGWriterMaxPages)
	}
	return e, nil
}

// ensureBlocks extends the file until it has n blocks
func (e *engine) ensureBlocks(fileName string, n int) error {
	np, err := e.dm.NumPages(fileName)
	if err != nil {
		return errors.Wrap(err, "dm.NumPages failed")
	}
	for i := int(np); i < n; i++ {
		if _, err := e.dm.ExtendPage(fileName); err != nil {
			return errors.Wrap(err, "dm.ExtendPage failed")
		}
	}
	return nil
}

// close closes the files
func (e *engine) close() error {
	return e.dm.Close()
}
