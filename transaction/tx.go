package transaction

import (
	"log/slog"

	"github.com/pkg/errors"

	"github.com/HayatoShiba/ppcc/common"
	"github.com/HayatoShiba/ppcc/logging"
	"github.com/HayatoShiba/ppcc/storage/buffer"
	"github.com/HayatoShiba/ppcc/storage/page"
	"github.com/HayatoShiba/ppcc/transaction/lock"
	"github.com/HayatoShiba/ppcc/transaction/txid"
)

var (
	// ErrTxCompleted is returned when the transaction has already been committed or aborted
	ErrTxCompleted = errors.New("transaction already completed")
	// ErrNotPinned is returned when the block is accessed without pin
	ErrNotPinned = errors.New("block is not pinned by the transaction")
)

// Tx is a transaction
// Tx is used by one goroutine. it is not safe for concurrent use.
type Tx struct {
	id     txid.TxID
	state  State
	m      *Manager
	cm     *concurrencyManager
	bl     *bufferList
	logger *slog.Logger
}

// newTransaction initializes transaction
func newTransaction(id txid.TxID, m *Manager) *Tx {
	return &Tx{
		id:     id,
		state:  StateInProgress,
		m:      m,
		cm:     newConcurrencyManager(m.lt, id),
		bl:     newBufferList(m.bm),
		logger: logging.WithTx(m.logger, int64(id)),
	}
}

// ID returns transaction id
func (tx *Tx) ID() txid.TxID {
	return tx.id
}

// State returns transaction state
func (tx *Tx) State() State {
	return tx.state
}

// SLock acquires shared lock on the block
// the error wraps lock.ErrLockAborted when the transaction must be rolled back
func (tx *Tx) SLock(blk common.BlockID) error {
	if IsCompleted(tx.state) {
		return ErrTxCompleted
	}
	return tx.cm.sLock(blk)
}

// XLock acquires exclusive lock on the block
// the error wraps lock.ErrLockAborted when the transaction must be rolled back
func (tx *Tx) XLock(blk common.BlockID) error {
	if IsCompleted(tx.state) {
		return ErrTxCompleted
	}
	return tx.cm.xLock(blk)
}

// Pin pins the block
// the caller is expected to lock the block before pin
func (tx *Tx) Pin(blk common.BlockID) (*buffer.Buffer, error) {
	if IsCompleted(tx.state) {
		return nil, ErrTxCompleted
	}
	return tx.bl.pin(blk)
}

// Unpin unpins the block once
func (tx *Tx) Unpin(blk common.BlockID) {
	tx.bl.unpin(blk)
}

// GetInt32 reads int32 at the offset of the block after acquiring shared lock
// the block must be pinned by the transaction
func (tx *Tx) GetInt32(blk common.BlockID, off int) (int32, error) {
	if err := tx.SLock(blk); err != nil {
		return 0, err
	}
	buf, ok := tx.bl.buffer(blk)
	if !ok {
		return 0, errors.Wrapf(ErrNotPinned, "get %s", blk)
	}
	return page.GetInt32(buf.Page(), off)
}

// SetInt32 writes int32 at the offset of the block after acquiring exclusive lock
// the block must be pinned by the transaction.
// no log record is generated (recovery is out of scope), so the buffer has no lsn.
func (tx *Tx) SetInt32(blk common.BlockID, off int, v int32) error {
	if err := tx.XLock(blk); err != nil {
		return err
	}
	buf, ok := tx.bl.buffer(blk)
	if !ok {
		return errors.Wrapf(ErrNotPinned, "set %s", blk)
	}
	if err := page.SetInt32(buf.Page(), off, v); err != nil {
		return errors.Wrap(err, "page.SetInt32 failed")
	}
	buf.SetModified(tx.id, page.InvalidLSN)
	return nil
}

/*
Commit commits transaction
- write out the pages modified by the transaction
- record committed in clog
- release locks and unpin buffers

if writing out fails, the transaction is rolled back.
*/
func (tx *Tx) Commit() error {
	if IsCompleted(tx.state) {
		return ErrTxCompleted
	}
	if err := tx.m.bm.FlushAll(tx.id); err != nil {
		tx.Rollback()
		return errors.Wrap(err, "bm.FlushAll failed")
	}
	if tx.m.cl != nil {
		if err := tx.m.cl.SetStateCommitted(tx.id); err != nil {
			tx.Rollback()
			return errors.Wrap(err, "cl.SetStateCommitted failed")
		}
	}
	tx.finish(StateCommitted)
	tx.logger.Debug("transaction committed")
	return nil
}

// Rollback aborts transaction
// modified pages are not restored (no undo), and they are left dirty in buffer pool.
// rollback of completed transaction does nothing.
func (tx *Tx) Rollback() {
	if IsCompleted(tx.state) {
		return
	}
	if tx.m.cl != nil {
		if err := tx.m.cl.SetStateAborted(tx.id); err != nil {
			tx.logger.Error("failed to record abort", "error", err)
		}
	}
	tx.finish(StateAborted)
	tx.logger.Debug("transaction rolled back")
}

// finish releases everything held by the transaction
func (tx *Tx) finish(state State) {
	tx.cm.release()
	tx.bl.unpinAll()
	tx.state = state
	tx.m.complete(tx.id)
}

// LockMode returns the lock mode the transaction holds on the block
func (tx *Tx) LockMode(blk common.BlockID) lock.Mode {
	return tx.cm.mode(blk)
}
