package transaction

// State is transaction state
// the outcome of finished transaction is also recorded in clog (see /transaction/clog)
// see https://github.com/postgres/postgres/blob/20432f8731404d2cef2a155144aca5ab3ae98e95/src/backend/access/transam/xact.c#L137-L148
type State uint

const (
	// during transaction
	StateInProgress State = iota
	// transaction committed
	StateCommitted
	// transaction aborted
	StateAborted
)

// String returns state name
func (s State) String() string {
	switch s {
	case StateInProgress:
		return "in progress"
	case StateCommitted:
		return "committed"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// IsCompleted checks whether the transaction has been completed
func IsCompleted(state State) bool {
	if state == StateCommitted || state == StateAborted {
		return true
	}
	return false
}
