/*
Lock table manages block-level locks of transactions (strict two-phase locking).
Every lock acquired by transaction is held until the transaction ends, and released all at once
through the transaction's concurrency manager.

lock modes:
- shared lock: for reading the block. any number of transactions can hold it at the same time.
- exclusive lock: for writing the block. only one transaction can hold it, and no shared lock coexists.
  exclusive lock is acquired by upgrading shared lock. (the concurrency manager always takes shared lock first)

---

deadlock avoidance (wait-die):
two-phase locking can deadlock. instead of detecting the cycle of waits-for graph, the cycle is never made.
transaction id is the age of transaction (smaller is older). when the requested lock conflicts with the lock held by
- an older transaction: the requester dies (ErrLockAborted). it is rolled back and may be restarted with new id.
- a younger transaction: the requester waits.
so older transaction only waits for younger one, and the waits never make a cycle.

starvation is detected by max wait: a request which has not been granted within max wait since it was issued
is aborted too.

---

locking:
the whole table is protected by one monitor like buffer manager. waiters are woken up whenever some holder leaves an entry,
and every waiter re-checks its own request. nothing is guaranteed about which waiter is granted first.

the idea of lock table is based on SimpleDB (Edward Sciore, "Database Design and Implementation").
postgres has much more complicated heavyweight lock manager. see
https://github.com/postgres/postgres/blob/27b77ecf9f4d5be211900eda54d8155ada50d696/src/backend/storage/lmgr/README#L1
*/
package lock

import (
	"log/slog"
	"sort"
	"time"

	"github.com/HayatoShiba/ppcc/common"
	"github.com/HayatoShiba/ppcc/logging"
	"github.com/HayatoShiba/ppcc/transaction/txid"
)

// Table is lock table
type Table struct {
	// mon protects entries
	mon *common.Monitor
	// entry exists only while somebody holds lock on the block
	entries map[common.BlockID]*entry

	maxWait time.Duration
	metrics *Metrics
	logger  *slog.Logger
}

// NewTable initializes lock table
func NewTable(opts ...Option) *Table {
	o := newOptions(opts)
	return &Table{
		mon:     common.NewMonitor(),
		entries: make(map[common.BlockID]*entry),
		maxWait: o.maxWait,
		metrics: NewMetrics(o.registerer),
		logger:  o.logger,
	}
}

/*
SLock acquires shared lock on the block.
while an exclusive lock is held by other transaction,
- the holder is older: abort immediately (wait-die)
- the holder is younger: wait until it's released

when the transaction already holds exclusive lock, it can read the block already, so nothing happens.
*/
func (t *Table) SLock(blk common.BlockID, txID txid.TxID) error {
	t.mon.Lock()
	defer t.mon.Unlock()

	// the deadline is fixed here, so retries after wake-up don't extend it
	deadline := time.Now().Add(t.maxWait)
	waited := false
	for {
		e, ok := t.entries[blk]
		if !ok {
			t.entries[blk] = newSharedEntry(txID)
			break
		}
		holder := e.exclusiveHolder()
		if holder == txid.InvalidTxID {
			e.addShared(txID)
			break
		}
		if holder == txID {
			return nil
		}
		if holder.IsOlderThan(txID) {
			return t.abort(blk, txID, ModeShared, holder, ReasonWaitDie)
		}
		if !waited {
			waited = true
			t.metrics.Waits.WithLabelValues(ModeShared.String()).Inc()
		}
		if !t.mon.WaitUntil(deadline) {
			return t.abort(blk, txID, ModeShared, holder, ReasonTimeout)
		}
	}
	t.metrics.Grants.WithLabelValues(ModeShared.String()).Inc()
	t.logger.Debug("lock granted", "mode", ModeShared, "file", blk.FileName, "block", blk.Number, "tx_id", txID)
	return nil
}

/*
XLock acquires exclusive lock on the block. the transaction is expected to hold shared lock already (upgrade).
while any other transaction holds lock (shared or exclusive) on the block,
- the oldest of the others is older: abort immediately (wait-die)
- otherwise: wait until they are released

when the transaction holds no lock on the block, it waits for the others in the same way and then acquires
exclusive lock directly.
*/
func (t *Table) XLock(blk common.BlockID, txID txid.TxID) error {
	t.mon.Lock()
	defer t.mon.Unlock()

	deadline := time.Now().Add(t.maxWait)
	waited := false
	for {
		e, ok := t.entries[blk]
		if !ok {
			break
		}
		if e.exclusiveHolder() == txID {
			return nil
		}
		oldest := e.oldestOtherHolder(txID)
		if oldest == txid.InvalidTxID {
			// the transaction is the only holder
			break
		}
		if oldest.IsOlderThan(txID) {
			return t.abort(blk, txID, ModeExclusive, oldest, ReasonWaitDie)
		}
		if !waited {
			waited = true
			t.metrics.Waits.WithLabelValues(ModeExclusive.String()).Inc()
		}
		if !t.mon.WaitUntil(deadline) {
			return t.abort(blk, txID, ModeExclusive, oldest, ReasonTimeout)
		}
	}
	t.entries[blk] = newExclusiveEntry(txID)
	t.metrics.Grants.WithLabelValues(ModeExclusive.String()).Inc()
	t.logger.Debug("lock granted", "mode", ModeExclusive, "file", blk.FileName, "block", blk.Number, "tx_id", txID)
	return nil
}

// Unlock releases the lock of the transaction on the block
// the entry is deleted when nobody holds the lock any more.
// waiters are woken up whenever the transaction was a holder, because an upgrade may be waiting for
// the remaining shared holders.
// unlocking the block not locked by the transaction does nothing.
func (t *Table) Unlock(blk common.BlockID, txID txid.TxID) {
	t.mon.Lock()
	defer t.mon.Unlock()

	e, ok := t.entries[blk]
	if !ok {
		return
	}
	if !e.remove(txID) {
		return
	}
	if len(e.holders) == 0 {
		delete(t.entries, blk)
	}
	t.mon.Broadcast()
}

// abort records the aborted request and returns the error
// the caller must hold the monitor
func (t *Table) abort(blk common.BlockID, txID txid.TxID, mode Mode, holder txid.TxID, reason Reason) error {
	t.metrics.Aborts.WithLabelValues(string(reason)).Inc()
	l := logging.WithTx(logging.WithBlock(t.logger, blk), int64(txID))
	l.Warn("lock request aborted", "mode", mode, "holder_tx_id", holder, "reason", reason)
	return &AbortError{
		Block:  blk,
		TxID:   txID,
		Mode:   mode,
		Holder: holder,
		Reason: reason,
	}
}

// Holders returns the lock mode and copy of holders on the block
func (t *Table) Holders(blk common.BlockID) (Mode, []txid.TxID) {
	t.mon.Lock()
	defer t.mon.Unlock()

	e, ok := t.entries[blk]
	if !ok {
		return ModeNone, nil
	}
	return e.mode, e.copyHolders()
}

// EntryStatus is the snapshot of lock on one block
type EntryStatus struct {
	Block   common.BlockID
	Mode    Mode
	Holders []txid.TxID
}

// Status returns the snapshot of all locks sorted by block
func (t *Table) Status() []EntryStatus {
	t.mon.Lock()
	defer t.mon.Unlock()

	st := make([]EntryStatus, 0, len(t.entries))
	for blk, e := range t.entries {
		st = append(st, EntryStatus{
			Block:   blk,
			Mode:    e.mode,
			Holders: e.copyHolders(),
		})
	}
	sort.Slice(st, func(i, j int) bool {
		return st[i].Block.Less(st[j].Block)
	})
	return st
}
