package lock

import "github.com/HayatoShiba/ppcc/transaction/txid"

// Mode is lock mode
type Mode int

const (
	// ModeNone means nobody holds lock
	ModeNone Mode = iota
	// ModeShared is shared lock (read)
	ModeShared
	// ModeExclusive is exclusive lock (write)
	ModeExclusive
)

// String returns lock mode name
func (m Mode) String() string {
	switch m {
	case ModeShared:
		return "shared"
	case ModeExclusive:
		return "exclusive"
	default:
		return "none"
	}
}

// entry is the lock state of one block
// the entry is either shared with one or more holders, or exclusive with exactly one holder.
// shared and exclusive holders never coexist.
type entry struct {
	mode Mode
	// holders is in the order of acquisition. exclusive entry has exactly one holder.
	holders []txid.TxID
}

// newSharedEntry initializes shared entry held by the transaction
func newSharedEntry(txID txid.TxID) *entry {
	return &entry{
		mode:    ModeShared,
		holders: []txid.TxID{txID},
	}
}

// newExclusiveEntry initializes exclusive entry held by the transaction
func newExclusiveEntry(txID txid.TxID) *entry {
	return &entry{
		mode:    ModeExclusive,
		holders: []txid.TxID{txID},
	}
}

// exclusiveHolder returns the holder of exclusive lock
// InvalidTxID is returned when the entry is shared
func (e *entry) exclusiveHolder() txid.TxID {
	if e.mode != ModeExclusive {
		return txid.InvalidTxID
	}
	return e.holders[0]
}

// isHeldBy checks whether the transaction holds the lock
func (e *entry) isHeldBy(txID txid.TxID) bool {
	for _, h := range e.holders {
		if h == txID {
			return true
		}
	}
	return false
}

// oldestOtherHolder returns the oldest holder except the transaction
// InvalidTxID is returned when nobody else holds the lock
func (e *entry) oldestOtherHolder(txID txid.TxID) txid.TxID {
	oldest := txid.InvalidTxID
	for _, h := range e.holders {
		if h == txID {
			continue
		}
		if oldest == txid.InvalidTxID || h.IsOlderThan(oldest) {
			oldest = h
		}
	}
	return oldest
}

// addShared appends the transaction to shared holders if it's not a holder yet
// the caller must check the entry is shared
func (e *entry) addShared(txID txid.TxID) {
	if e.isHeldBy(txID) {
		return
	}
	e.holders = append(e.holders, txID)
}

// remove removes the transaction from holders, and returns whether it was a holder
func (e *entry) remove(txID txid.TxID) bool {
	removed := false
	holders := e.holders[:0]
	for _, h := range e.holders {
		if h == txID {
			removed = true
			continue
		}
		holders = append(holders, h)
	}
	e.holders = holders
	return removed
}

// copyHolders returns copy of holders
func (e *entry) copyHolders() []txid.TxID {
	holders := make([]txid.TxID, len(e.holders))
	copy(holders, e.holders)
	return holders
}
