/*
Clog manager manages clog.
Clog is stored in pg_xact file under the base directory. In ppcc, only one file exists for clog.

----
About clog

Clog stores the outcome of all finished transactions (committed or aborted).
The transaction whose outcome is not recorded is in progress, or it was running when the process stopped.
Lock table and buffer manager don't need clog, but the transaction manager records the outcome here
so that it can be checked after the transaction has gone (e.g. by the operator CLI, or recovery later).

----
About clog buffer

Postgres has dedicated SLRU buffer for clog. In ppcc, clog pages are cached by the buffer manager
given to clog manager, which should be separated from the buffer pool for data pages,
so that FlushAll of transaction id writes out only clog page.
Clog page is written out every time the state is set, so the outcome is durable when Set* returns.

see https://github.com/postgres/postgres/blob/5ca3645cb3fb4b8b359ea560f6a1a230ea59c8bc/src/backend/access/transam/slru.c#L3
see https://github.com/postgres/postgres/blob/75f49221c22286104f032827359783aa5f4e6646/src/backend/access/transam/clog.c#L3
*/
package clog

import (
	"github.com/pkg/errors"
	"github.com/sasha-s/go-deadlock"

	"github.com/HayatoShiba/ppcc/storage/buffer"
	"github.com/HayatoShiba/ppcc/storage/page"
	"github.com/HayatoShiba/ppcc/transaction/txid"
)

// FileName is the file name of clog
const FileName = "pg_xact"

// Manager is clog manager
type Manager struct {
	// buffer manager doesn't protect page content, so this lock protects clog pages
	// (transactions on the same page update the same bytes)
	mu deadlock.Mutex
	bm *buffer.Manager
}

// NewManager initializes clog manager
func NewManager(bm *buffer.Manager) *Manager {
	return &Manager{bm: bm}
}

// SetStateCommitted records the transaction has been committed
func (m *Manager) SetStateCommitted(txID txid.TxID) error {
	return m.updateState(txID, stateCommitted)
}

// SetStateAborted records the transaction has been aborted
func (m *Manager) SetStateAborted(txID txid.TxID) error {
	return m.updateState(txID, stateAborted)
}

// IsTxCommitted checks whether the transaction has been committed
func (m *Manager) IsTxCommitted(txID txid.TxID) (bool, error) {
	st, err := m.getState(txID)
	if err != nil {
		return false, errors.Wrap(err, "getState failed")
	}
	return st == stateCommitted, nil
}

// IsTxAborted checks whether the transaction has been aborted
func (m *Manager) IsTxAborted(txID txid.TxID) (bool, error) {
	st, err := m.getState(txID)
	if err != nil {
		return false, errors.Wrap(err, "getState failed")
	}
	return st == stateAborted, nil
}

// getState returns transaction state
func (m *Manager) getState(txID txid.TxID) (state, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := locate(txID)
	buf, err := m.bm.Pin(s.block())
	if err != nil {
		return stateInProgress, errors.Wrap(err, "bm.Pin failed")
	}
	defer m.bm.Unpin(buf)

	return s.get(buf.Page()), nil
}

// updateState updates the state in the page and writes out the page
func (m *Manager) updateState(txID txid.TxID, st state) error {
	if !txID.IsValid() {
		return errors.Errorf("invalid transaction id %s", txID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s := locate(txID)
	buf, err := m.bm.Pin(s.block())
	if err != nil {
		return errors.Wrap(err, "bm.Pin failed")
	}
	defer m.bm.Unpin(buf)

	s.set(buf.Page(), st)
	// no log record for clog
	buf.SetModified(txID, page.InvalidLSN)
	if err := m.bm.FlushAll(txID); err != nil {
		return errors.Wrap(err, "bm.FlushAll failed")
	}
	return nil
}
