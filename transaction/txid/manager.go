/*
Transaction id manager manages transaction id.

Transaction id is used as the lock owner token in lock table and as the age of transaction in wait-die.
This is implemented as manager because transaction id is kind of shared resource.
The latest transaction id has to be maintained and lock has to be held when allocating the transaction id.
(postgres calls the lock XidGenLock)
see https://github.com/postgres/postgres/blob/97c61f70d1b97bdfd20dcb1f2b1be42862ec88c2/src/backend/access/transam/README#L272-L284
*/
package txid

import (
	"sync"
)

type Manager struct {
	// this lock has to be acquired before generation of new transaction id.
	sync.Mutex
	// nextTxID is the transaction id which is alloted next time
	nextTxID TxID
}

// NewManager initializes transaction id manager
func NewManager() *Manager {
	return &Manager{
		nextTxID: FirstTxID,
	}
}

// NewManagerFrom initializes transaction id manager which allocates next from the specified id.
// this is used when restarting after the ids up to next-1 have been used.
func NewManagerFrom(next TxID) *Manager {
	if !next.IsValid() {
		next = FirstTxID
	}
	return &Manager{
		nextTxID: next,
	}
}

// AllocateNewTxID allocates next transaction id and advances it
// https://github.com/postgres/postgres/blob/a448e49bcbe40fb72e1ed85af910dd216d45bad8/src/backend/access/transam/varsup.c#L50
func (tm *Manager) AllocateNewTxID() TxID {
	tm.Lock()
	defer tm.Unlock()
	txID := tm.nextTxID
	tm.nextTxID = advanceTxID(tm.nextTxID)
	return txID
}

// NextTxID returns the transaction id which will be allocated next
func (tm *Manager) NextTxID() TxID {
	tm.Lock()
	defer tm.Unlock()
	return tm.nextTxID
}
