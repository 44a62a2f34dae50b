package lock

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/HayatoShiba/ppcc/common"
	"github.com/HayatoShiba/ppcc/transaction/txid"
)

// ErrLockAborted is returned when the lock request is given up.
// the requesting transaction must be rolled back.
var ErrLockAborted = errors.New("lock aborted")

// Reason is why lock request is aborted
type Reason string

const (
	// ReasonWaitDie means an older transaction holds the conflicting lock, so the younger requester dies
	ReasonWaitDie Reason = "wait-die"
	// ReasonTimeout means the lock was not granted within max wait
	ReasonTimeout Reason = "timeout"
)

// AbortError is the error of aborted lock request
// errors.Is(err, ErrLockAborted) is true for AbortError
type AbortError struct {
	Block  common.BlockID
	TxID   txid.TxID
	Mode   Mode
	Holder txid.TxID
	Reason Reason
}

// Error implements error
func (e *AbortError) Error() string {
	return fmt.Sprintf("%s: %s lock on %s by tx %s (holder tx %s, %s)",
		ErrLockAborted, e.Mode, e.Block, e.TxID, e.Holder, e.Reason)
}

// Is makes errors.Is(err, ErrLockAborted) true
func (e *AbortError) Is(target error) bool {
	return target == ErrLockAborted
}

// AbortReason returns the reason if err is abort of lock request
func AbortReason(err error) (Reason, bool) {
	var ae *AbortError
	if !errors.As(err, &ae) {
		return "", false
	}
	return ae.Reason, true
}
