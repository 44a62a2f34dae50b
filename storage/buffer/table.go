/*
This is buffer table (just simple hash map) from block to the buffer holding it.
In postgres, buffer table is partitioned for performance optimization, but here the table is protected
by the manager's monitor like every other state of buffer pool.

for more details, see https://github.com/postgres/postgres/blob/27b77ecf9f4d5be211900eda54d8155ada50d696/src/backend/storage/buffer/buf_table.c#L3
*/
package buffer

import "github.com/HayatoShiba/ppcc/common"

// bufferTable is buffer table
type bufferTable struct {
	// mapping from block to buffer. each block is held by one buffer at most.
	table map[common.BlockID]*Buffer
}

// newBufferTable initializes buffer table
func newBufferTable(size int) bufferTable {
	return bufferTable{
		table: make(map[common.BlockID]*Buffer, size),
	}
}

// lookup returns the buffer holding the block
func (bt bufferTable) lookup(blk common.BlockID) (*Buffer, bool) {
	buf, ok := bt.table[blk]
	return buf, ok
}

// insert inserts the entry
func (bt bufferTable) insert(blk common.BlockID, buf *Buffer) {
	bt.table[blk] = buf
}

// delete deletes the entry
func (bt bufferTable) delete(blk common.BlockID) {
	delete(bt.table, blk)
}

// len returns the number of resident blocks
func (bt bufferTable) len() int {
	return len(bt.table)
}
