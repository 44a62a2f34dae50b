package txid

import "strconv"

// TxID is transaction id
// transaction id is allocated in increasing order, so it is also the age of transaction:
// smaller id is older transaction. wait-die relies on this ordering, so the id must never wrap around.
// (int64 doesn't overflow in practice)
type TxID int64

const (
	// invalid transaction id. e.g. the modifying transaction of a clean buffer
	InvalidTxID TxID = 0
	// first transaction id allocated by transaction id manager
	FirstTxID TxID = 1
)

// IsValid checks whether the transaction id is valid
func (id TxID) IsValid() bool {
	return id >= FirstTxID
}

// IsOlderThan checks whether the transaction started before the compared one (id < compared)
func (id TxID) IsOlderThan(compared TxID) bool {
	return id < compared
}

// String returns transaction id as decimal
func (id TxID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// advanceTxID advances transaction id
func advanceTxID(txID TxID) TxID {
	return txID + 1
}
