/*
Transaction manager composes lock table and buffer manager.
Lock table and buffer manager know nothing about each other. Transaction is the only user of both:
- lock the block through lock table (shared before read, exclusive before write)
- pin the block through buffer manager and read/write the page
- at commit, write out the modified pages, then release all locks and pins at once (strict two-phase locking)

----
About wait-die abort

When the lock request is aborted by wait-die, the transaction must be rolled back.
The aborted transaction can be restarted, but it has to get new transaction id.
The new id is younger than any running transaction, so it may be aborted again, but
the transactions older than it finish eventually, and then it becomes the oldest one.
(postgres detects deadlock instead. see https://github.com/postgres/postgres/blob/27b77ecf9f4d5be211900eda54d8155ada50d696/src/backend/storage/lmgr/README#L417)

RunTx does this restart with exponential backoff.
*/
package transaction

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/sasha-s/go-deadlock"
	"github.com/sethvargo/go-retry"

	"github.com/HayatoShiba/ppcc/storage/buffer"
	"github.com/HayatoShiba/ppcc/transaction/clog"
	"github.com/HayatoShiba/ppcc/transaction/lock"
	"github.com/HayatoShiba/ppcc/transaction/txid"
)

// maxRetryDelay is the max backoff between the restarts
const maxRetryDelay = time.Second

// Manager is transaction manager
type Manager struct {
	tm *txid.Manager
	lt *lock.Table
	bm *buffer.Manager
	// cl is nil when the outcome is not recorded
	cl *clog.Manager

	// mu protects active
	mu deadlock.Mutex
	// active is the transactions in progress
	// allocation of transaction id and insertion into active have to be atomic,
	// otherwise the younger transaction can appear in active earlier than the older one.
	active map[txid.TxID]struct{}

	maxRetries uint64
	retryBase  time.Duration
	logger     *slog.Logger
}

// NewManager initializes transaction manager
func NewManager(tm *txid.Manager, lt *lock.Table, bm *buffer.Manager, opts ...Option) *Manager {
	o := newOptions(opts)
	return &Manager{
		tm:         tm,
		lt:         lt,
		bm:         bm,
		cl:         o.clog,
		active:     make(map[txid.TxID]struct{}),
		maxRetries: o.maxRetries,
		retryBase:  o.retryBase,
		logger:     o.logger,
	}
}

// Begin begins transaction
// see https://github.com/postgres/postgres/blob/20432f8731404d2cef2a155144aca5ab3ae98e95/src/backend/access/transam/xact.c#L2925
func (m *Manager) Begin() *Tx {
	m.mu.Lock()
	txID := m.tm.AllocateNewTxID()
	m.active[txID] = struct{}{}
	m.mu.Unlock()

	m.logger.Debug("transaction began", "tx_id", txID)
	return newTransaction(txID, m)
}

// complete removes the transaction from active transactions
func (m *Manager) complete(txID txid.TxID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, txID)
}

// ActiveTxIDs returns the transactions in progress from the oldest
func (m *Manager) ActiveTxIDs() []txid.TxID {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]txid.TxID, 0, len(m.active))
	for id := range m.active {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].IsOlderThan(ids[j])
	})
	return ids
}

/*
RunTx runs fn in a new transaction, and commits it when fn returns nil.
when fn returns error, the transaction is rolled back.
when the error is lock abort (wait-die or timeout), fn is run again in another new transaction
after backoff, at most maxRetries times.
fn must not keep the transaction after it returns.
*/
func (m *Manager) RunTx(ctx context.Context, fn func(*Tx) error) error {
	b := retry.NewExponential(m.retryBase)
	b = retry.WithCappedDuration(maxRetryDelay, b)
	b = retry.WithMaxRetries(m.maxRetries, b)
	attempt := 0
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		tx := m.Begin()
		if err := fn(tx); err != nil {
			tx.Rollback()
			if errors.Is(err, lock.ErrLockAborted) {
				m.logger.Debug("restarting aborted transaction", "tx_id", tx.ID(), "attempt", attempt, "error", err)
				return retry.RetryableError(err)
			}
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return errors.Wrapf(err, "transaction failed after %d attempts", attempt)
	}
	return nil
}
