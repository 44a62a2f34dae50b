package transaction

import (
	"github.com/pkg/errors"

	"github.com/HayatoShiba/ppcc/common"
	"github.com/HayatoShiba/ppcc/transaction/lock"
	"github.com/HayatoShiba/ppcc/transaction/txid"
)

// concurrencyManager remembers the locks held by one transaction.
// the lock table is shared by all transactions, but this is per transaction, so no lock is needed.
// - redundant request is not sent to lock table
// - exclusive lock is always acquired after shared lock (upgrade)
// - all locks are released at the end of transaction (strict two-phase locking)
type concurrencyManager struct {
	lt    *lock.Table
	txID  txid.TxID
	locks map[common.BlockID]lock.Mode
}

// newConcurrencyManager initializes concurrency manager of the transaction
func newConcurrencyManager(lt *lock.Table, txID txid.TxID) *concurrencyManager {
	return &concurrencyManager{
		lt:    lt,
		txID:  txID,
		locks: make(map[common.BlockID]lock.Mode),
	}
}

// sLock acquires shared lock unless the transaction holds any lock on the block
func (cm *concurrencyManager) sLock(blk common.BlockID) error {
	if _, ok := cm.locks[blk]; ok {
		return nil
	}
	if err := cm.lt.SLock(blk, cm.txID); err != nil {
		return errors.Wrap(err, "lt.SLock failed")
	}
	cm.locks[blk] = lock.ModeShared
	return nil
}

// xLock acquires exclusive lock by upgrading shared lock
func (cm *concurrencyManager) xLock(blk common.BlockID) error {
	if cm.locks[blk] == lock.ModeExclusive {
		return nil
	}
	if err := cm.sLock(blk); err != nil {
		return errors.Wrap(err, "sLock failed")
	}
	if err := cm.lt.XLock(blk, cm.txID); err != nil {
		return errors.Wrap(err, "lt.XLock failed")
	}
	cm.locks[blk] = lock.ModeExclusive
	return nil
}

// mode returns the lock mode held on the block
func (cm *concurrencyManager) mode(blk common.BlockID) lock.Mode {
	return cm.locks[blk]
}

// release releases all locks
func (cm *concurrencyManager) release() {
	for blk := range cm.locks {
		cm.lt.Unlock(blk, cm.txID)
	}
	cm.locks = make(map[common.BlockID]lock.Mode)
}
