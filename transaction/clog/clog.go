/*
clog page layout

A clog page is the page header followed by the status bitmap. Each transaction owns 2 bits of the bitmap,
and 4 transactions share one byte. The first transaction of a byte uses the highest 2 bits.

	| header (lsn) | tx 0 tx 1 tx 2 tx 3 | tx 4 tx 5 tx 6 tx 7 | ...
	               |<----- 1 byte ------>|

The page header is left untouched because clog has no log record.
see https://github.com/postgres/postgres/blob/75f49221c22286104f032827359783aa5f4e6646/src/backend/access/transam/clog.c#L60-L70
*/
package clog

import (
	"github.com/HayatoShiba/ppcc/common"
	"github.com/HayatoShiba/ppcc/storage/page"
	"github.com/HayatoShiba/ppcc/transaction/txid"
)

// state is the outcome of a transaction recorded in clog
// see https://github.com/postgres/postgres/blob/27b77ecf9f4d5be211900eda54d8155ada50d696/src/include/access/clog.h#L25-L30
type state byte

const (
	// zero-filled page means every transaction on it is in progress
	stateInProgress state = 0x00
	stateCommitted  state = 0x01
	stateAborted    state = 0x02
)

func (st state) String() string {
	switch st {
	case stateInProgress:
		return "in progress"
	case stateCommitted:
		return "committed"
	case stateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

const (
	statusBits = 2
	statusMask = byte(1<<statusBits - 1)
	txsPerByte = 8 / statusBits
	// the page header takes the first 8 bytes
	txsPerPage = (page.PageSize - 8) * txsPerByte
)

// slot is where the state of one transaction lives
type slot struct {
	pageID page.PageID
	// off is byte offset within the page (including page header)
	off int
	// shift is the distance of the 2 bits from the lowest bit of the byte
	shift uint
}

// locate returns the slot of the transaction
func locate(txID txid.TxID) slot {
	n := int64(txID)
	inPage := int(n % txsPerPage)
	return slot{
		pageID: page.PageID(n / txsPerPage),
		off:    page.HeaderSize() + inPage/txsPerByte,
		shift:  uint(8 - statusBits*(inPage%txsPerByte+1)),
	}
}

// block returns the clog block containing the slot
func (s slot) block() common.BlockID {
	return common.NewBlockID(FileName, s.pageID)
}

// get reads the state from the page
func (s slot) get(p page.PagePtr) state {
	return state((p[s.off] >> s.shift) & statusMask)
}

// set overwrites the state in the page. the other transactions in the same byte are kept
func (s slot) set(p page.PagePtr, st state) {
	p[s.off] = p[s.off]&^(statusMask<<s.shift) | byte(st)<<s.shift
}
