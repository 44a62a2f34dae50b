package buffer

import (
	"container/list"

	"github.com/HayatoShiba/ppcc/common"
	"github.com/HayatoShiba/ppcc/storage/page"
	"github.com/HayatoShiba/ppcc/transaction/txid"
)

// BufferID is the index of buffer in buffer pool
type BufferID int

const (
	// FirstBufferID is the id of the first buffer
	FirstBufferID BufferID = 0
	// InvalidBufferID indicates no buffer
	InvalidBufferID BufferID = -1
)

/*
Buffer is one slot of buffer pool. It holds the page of at most one block.

Metadata of buffer:
- pin count: how many times the buffer is pinned now. the buffer is not reused while pinned.
- modifying transaction and lsn: the transaction which lastly modified the page and the lsn of the log record.
  the buffer is dirty while the modifying transaction is valid.

The block and the page of buffer are swapped only when the pin count is 0.
So the caller holding pin can read Block() and Page() without any lock.
Accessing page content concurrently has to be protected by lock table (see /transaction/lock).
The other fields are protected by the manager's monitor.
*/
type Buffer struct {
	id  BufferID
	mon *common.Monitor

	// blk is valid only when assigned is true
	blk      common.BlockID
	assigned bool
	page     page.PagePtr

	pins int
	txID txid.TxID
	lsn  page.LSN

	// elem is the position in unpinned list. this is nil while the buffer is pinned.
	elem *list.Element
}

// newBuffer initializes buffer
func newBuffer(id BufferID, mon *common.Monitor) *Buffer {
	return &Buffer{
		id:   id,
		mon:  mon,
		page: page.NewPagePtr(),
		txID: txid.InvalidTxID,
		lsn:  page.InvalidLSN,
	}
}

// ID returns buffer id
func (b *Buffer) ID() BufferID {
	return b.id
}

// Block returns the block held by the buffer
// the caller must hold pin
func (b *Buffer) Block() common.BlockID {
	return b.blk
}

// Page returns the page held by the buffer
// the caller must hold pin
func (b *Buffer) Page() page.PagePtr {
	return b.page
}

// SetModified records that the transaction modified the page.
// when lsn is negative, the modification has not generated log record and the lsn is not updated.
func (b *Buffer) SetModified(txID txid.TxID, lsn page.LSN) {
	b.mon.Lock()
	defer b.mon.Unlock()
	b.txID = txID
	if lsn >= 0 {
		b.lsn = lsn
	}
}

// ModifyingTx returns the transaction which lastly modified the page
// InvalidTxID is returned when the page is clean
func (b *Buffer) ModifyingTx() txid.TxID {
	b.mon.Lock()
	defer b.mon.Unlock()
	return b.txID
}

// IsPinned checks whether the buffer is pinned
func (b *Buffer) IsPinned() bool {
	b.mon.Lock()
	defer b.mon.Unlock()
	return b.pins > 0
}

// isDirty checks whether the page has been modified after it was read or flushed
func (b *Buffer) isDirty() bool {
	return b.txID != txid.InvalidTxID
}

// assignToBlock associates the buffer with the block whose content has been read into p.
// the old page is returned to be reused by the caller.
// the modification of the previous block is dropped here; it must be flushed before if needed.
func (b *Buffer) assignToBlock(blk common.BlockID, p page.PagePtr) page.PagePtr {
	old := b.page
	b.page = p
	b.blk = blk
	b.assigned = true
	b.txID = txid.InvalidTxID
	b.lsn = page.InvalidLSN
	return old
}
