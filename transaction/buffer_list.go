package transaction

import (
	"github.com/pkg/errors"

	"github.com/HayatoShiba/ppcc/common"
	"github.com/HayatoShiba/ppcc/storage/buffer"
)

// bufferList remembers the buffers pinned by one transaction
// so that every pin is unpinned at the end of transaction even if the caller forgets it.
type bufferList struct {
	bm      *buffer.Manager
	buffers map[common.BlockID]*buffer.Buffer
	// pins is how many times the transaction pins the block
	pins map[common.BlockID]int
}

// newBufferList initializes buffer list
func newBufferList(bm *buffer.Manager) *bufferList {
	return &bufferList{
		bm:      bm,
		buffers: make(map[common.BlockID]*buffer.Buffer),
		pins:    make(map[common.BlockID]int),
	}
}

// buffer returns the buffer pinned by the transaction
func (bl *bufferList) buffer(blk common.BlockID) (*buffer.Buffer, bool) {
	buf, ok := bl.buffers[blk]
	return buf, ok
}

// pin pins the block and remembers it
func (bl *bufferList) pin(blk common.BlockID) (*buffer.Buffer, error) {
	buf, err := bl.bm.Pin(blk)
	if err != nil {
		return nil, errors.Wrap(err, "bm.Pin failed")
	}
	bl.buffers[blk] = buf
	bl.pins[blk]++
	return buf, nil
}

// unpin unpins the block once
// unpinning the block not pinned by the transaction does nothing
func (bl *bufferList) unpin(blk common.BlockID) {
	buf, ok := bl.buffers[blk]
	if !ok {
		return
	}
	bl.bm.Unpin(buf)
	bl.pins[blk]--
	if bl.pins[blk] == 0 {
		delete(bl.pins, blk)
		delete(bl.buffers, blk)
	}
}

// unpinAll unpins every pin of the transaction
func (bl *bufferList) unpinAll() {
	for blk, n := range bl.pins {
		buf := bl.buffers[blk]
		for i := 0; i < n; i++ {
			bl.bm.Unpin(buf)
		}
	}
	bl.buffers = make(map[common.BlockID]*buffer.Buffer)
	bl.pins = make(map[common.BlockID]int)
}
