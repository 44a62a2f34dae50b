/*
Buffer pool manager caches blocks in a fixed number of buffers.
Disk IO is expensive so data should be cached on memory and buffer pool manager is responsible for this.

the main entry points are
- Pin: returns the buffer holding the block. the block is read into a free buffer if it is not cached yet.
- Unpin: the caller has completed using the buffer. the buffer can be reused when nobody pins it.
- FlushAll: writes out the pages modified by the transaction.

---

access rules for buffers:
- pin/unpin: the buffer is not reused while pinned. the caller must unpin the buffer exactly as many times as it pinned.
- page content: buffer manager doesn't protect the page content. transactions lock the block through lock table
  before they pin the block, so the content is protected by the block lock.

the flow when a transaction reads/writes a block is described below:
- lock the block (shared or exclusive) -> pin the block -> read/write the page -> unpin the buffer
- -> (transaction end) unlock the block

---

locking:
the whole state of buffer pool (buffer table, unpinned list, available count, pin counts) is protected by one monitor.
there is no finer-grained lock such as buffer header lock or partitioned mapping lock in postgres.
this is simple and enough for small number of concurrent transactions.

when no buffer is free, Pin sleeps on the monitor and is woken up when some buffer gets unpinned.
every sleeper is woken up and re-checks, so nothing is guaranteed about which sleeper gets the buffer.
Pin gives up when it has waited for maxWait in total since it was called.

---

buffer replacement:
the victim is the buffer which became unpinned earliest (FIFO). see free_list.go.

the victim is NOT flushed before reuse even when it is dirty. the modification must have been written out
with FlushAll (at commit) or background writer before, otherwise it is dropped.
steal/no-force policy belongs to recovery, which is out of this module.
*/
package buffer

import (
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/HayatoShiba/ppcc/common"
	"github.com/HayatoShiba/ppcc/storage/page"
	"github.com/HayatoShiba/ppcc/transaction/txid"
)

// ErrBufferUnavailable is returned when no buffer gets free within max wait
var ErrBufferUnavailable = errors.New("buffer unavailable")

// BlockIO reads and writes blocks. disk.Manager implements this.
type BlockIO interface {
	ReadPage(blk common.BlockID, p page.PagePtr) error
	WritePage(blk common.BlockID, p page.PagePtr) error
}

// Manager manages buffer pool
type Manager struct {
	// disk manager
	dm BlockIO
	// log manager. log records are flushed before the page is written out
	lf LogFlusher

	// mon protects everything below
	mon *common.Monitor
	// buffers is the buffer pool. the size never changes
	buffers []*Buffer
	// table is mapping from block to buffer
	table bufferTable
	// unpinned is FIFO list of buffers whose pin count is 0
	unpinned *unpinnedList
	// available is the number of buffers whose pin count is 0
	available int
	// spare is the page which the next block is read into.
	// swapping it with the victim's page keeps the victim untouched when the read fails.
	spare page.PagePtr

	maxWait time.Duration
	metrics *Metrics
	logger  *slog.Logger
}

// NewManager initializes the buffer pool manager
func NewManager(dm BlockIO, lf LogFlusher, opts ...Option) *Manager {
	o := newOptions(opts)
	if lf == nil {
		lf = NopLogFlusher{}
	}
	m := &Manager{
		dm:        dm,
		lf:        lf,
		mon:       common.NewMonitor(),
		buffers:   make([]*Buffer, o.poolSize),
		table:     newBufferTable(o.poolSize),
		unpinned:  newUnpinnedList(),
		available: o.poolSize,
		spare:     page.NewPagePtr(),
		maxWait:   o.maxWait,
		metrics:   NewMetrics(o.registerer),
		logger:    o.logger,
	}
	for i := range m.buffers {
		buf := newBuffer(BufferID(i), m.mon)
		m.buffers[i] = buf
		m.unpinned.pushBack(buf)
	}
	m.metrics.Available.Set(float64(m.available))
	m.logger.Info("buffer pool initialized", "size", o.poolSize, "max_wait", o.maxWait)
	return m
}

// Size returns the number of buffers in buffer pool
func (m *Manager) Size() int {
	return len(m.buffers)
}

// Available returns the number of unpinned buffers
func (m *Manager) Available() int {
	m.mon.Lock()
	defer m.mon.Unlock()
	return m.available
}

/*
Pin returns the buffer holding the block after pinning it.
the caller has to call Unpin() after completion of using the buffer.

when the block is already cached, just pin and return it.
when the block is not, the block is read into the buffer taken from the head of unpinned list.
when no buffer is unpinned, wait until some buffer is unpinned.
ErrBufferUnavailable is returned when maxWait has elapsed since Pin was called.
*/
func (m *Manager) Pin(blk common.BlockID) (*Buffer, error) {
	m.mon.Lock()
	defer m.mon.Unlock()

	// the deadline is fixed here, so retries after wake-up don't extend it
	deadline := time.Now().Add(m.maxWait)
	waited := false
	for {
		buf, err := m.tryToPin(blk)
		if err != nil {
			return nil, errors.Wrap(err, "tryToPin failed")
		}
		if buf != nil {
			return buf, nil
		}
		if !waited {
			waited = true
			m.metrics.PinWaits.Inc()
			m.logger.Debug("waiting for unpinned buffer", "file", blk.FileName, "block", blk.Number)
		}
		if !m.mon.WaitUntil(deadline) {
			m.metrics.PinTimeouts.Inc()
			m.logger.Warn("no buffer became available", "file", blk.FileName, "block", blk.Number, "max_wait", m.maxWait)
			return nil, errors.Wrapf(ErrBufferUnavailable, "pin %s: waited %s", blk, m.maxWait)
		}
	}
}

// tryToPin pins the block if some buffer can hold it now
// nil buffer without error means no buffer is available now
// the caller must hold the monitor
func (m *Manager) tryToPin(blk common.BlockID) (*Buffer, error) {
	// check whether the block is already cached. if cached, just pin it.
	// pinning the cached block doesn't change any mapping.
	if buf, ok := m.table.lookup(blk); ok {
		m.pin(buf)
		m.metrics.Pins.WithLabelValues(pinResultHit).Inc()
		return buf, nil
	}

	// choose the victim. this is the buffer unpinned earliest
	buf := m.unpinned.popFront()
	if buf == nil {
		return nil, nil
	}

	// read the block into spare page, not into the victim's page.
	// if the read fails, the victim keeps the old block and returns to the head of the list as if nothing happened.
	if err := m.dm.ReadPage(blk, m.spare); err != nil {
		m.unpinned.pushFront(buf)
		return nil, errors.Wrap(err, "dm.ReadPage failed")
	}

	if buf.assigned {
		if buf.isDirty() {
			m.logger.Debug("dropping unflushed modification of victim", "buffer", buf.id,
				"file", buf.blk.FileName, "block", buf.blk.Number, "tx_id", buf.txID)
		}
		m.table.delete(buf.blk)
		m.metrics.Evictions.Inc()
	}
	m.spare = buf.assignToBlock(blk, m.spare)
	m.table.insert(blk, buf)
	m.pin(buf)
	m.metrics.Pins.WithLabelValues(pinResultMiss).Inc()
	m.logger.Debug("block read into buffer", "buffer", buf.id, "file", blk.FileName, "block", blk.Number)
	return buf, nil
}

// pin increments pin count of the buffer
// the first pin takes the buffer off the unpinned list
// the caller must hold the monitor
func (m *Manager) pin(buf *Buffer) {
	if buf.pins == 0 {
		m.unpinned.remove(buf)
		m.available--
		m.metrics.Available.Set(float64(m.available))
	}
	buf.pins++
}

// Unpin unpins the buffer
// when the pin count drops to 0, the buffer is appended to the unpinned list,
// and all goroutines waiting in Pin are woken up.
func (m *Manager) Unpin(buf *Buffer) {
	m.mon.Lock()
	defer m.mon.Unlock()

	if buf.pins == 0 {
		// pin/unpin must be called in pairs. this is the caller's bug,
		// but the counts are kept consistent by ignoring it
		m.logger.Error("unpin of unpinned buffer is ignored", "buffer", buf.id)
		return
	}
	buf.pins--
	if buf.pins == 0 {
		m.unpinned.pushBack(buf)
		m.available++
		m.metrics.Available.Set(float64(m.available))
		m.mon.Broadcast()
	}
}

// FlushAll writes out every page modified by the transaction
// log records are flushed before each page (log-first)
func (m *Manager) FlushAll(txID txid.TxID) error {
	m.mon.Lock()
	defer m.mon.Unlock()

	for _, buf := range m.buffers {
		if !buf.assigned || buf.txID != txID {
			continue
		}
		if err := m.flushBuffer(buf); err != nil {
			return errors.Wrapf(err, "flush buffer %d failed", buf.id)
		}
	}
	return nil
}

// FlushDirty writes out at most maxPages dirty pages of unpinned buffers, from the head of unpinned list.
// this is called by background writer so that victims are clean when they are reused.
// pinned buffers are skipped because their pages may be being modified.
// the number of flushed pages is returned.
func (m *Manager) FlushDirty(maxPages int) (int, error) {
	if maxPages <= 0 {
		return 0, nil
	}
	m.mon.Lock()
	defer m.mon.Unlock()

	var dirty []*Buffer
	m.unpinned.each(func(buf *Buffer) bool {
		if buf.assigned && buf.isDirty() {
			dirty = append(dirty, buf)
		}
		return len(dirty) < maxPages
	})
	for i, buf := range dirty {
		if err := m.flushBuffer(buf); err != nil {
			return i, errors.Wrapf(err, "flush buffer %d failed", buf.id)
		}
	}
	return len(dirty), nil
}

// flushBuffer writes out the buffer's page into its block if the page is dirty
// the caller must hold the monitor
func (m *Manager) flushBuffer(buf *Buffer) error {
	if !buf.isDirty() {
		return nil
	}
	if buf.lsn != page.InvalidLSN {
		// log records must be durable before the page (WAL protocol)
		if err := m.lf.Flush(buf.lsn); err != nil {
			return errors.Wrap(err, "lf.Flush failed")
		}
		page.SetLSN(buf.page, buf.lsn)
	}
	if err := m.dm.WritePage(buf.blk, buf.page); err != nil {
		return errors.Wrap(err, "dm.WritePage failed")
	}
	m.metrics.Flushes.Inc()
	m.logger.Debug("buffer flushed", "buffer", buf.id, "file", buf.blk.FileName, "block", buf.blk.Number, "tx_id", buf.txID)
	buf.txID = txid.InvalidTxID
	return nil
}
