package common

import (
	"fmt"

	"github.com/HayatoShiba/ppcc/storage/page"
)

// BlockID identifies a block on disk: the file it lives in and its position within that file.
// BlockID is comparable so that it can be used directly as a map key by the buffer table and the lock table.
// see https://github.com/postgres/postgres/blob/a448e49bcbe40fb72e1ed85af910dd216d45bad8/src/include/storage/buf_internals.h#L79-L98
type BlockID struct {
	// FileName is the name of the file under the base directory
	FileName string
	// Number is the position of the block within the file
	Number page.PageID
}

// NewBlockID initializes block id
func NewBlockID(fileName string, number page.PageID) BlockID {
	return BlockID{
		FileName: fileName,
		Number:   number,
	}
}

// String returns human-readable block id
func (b BlockID) String() string {
	return fmt.Sprintf("[file %s, block %d]", b.FileName, b.Number)
}

// Less orders block ids by file name and then by block number.
// this is used only to print diagnostics in stable order.
func (b BlockID) Less(other BlockID) bool {
	if b.FileName != other.FileName {
		return b.FileName < other.FileName
	}
	return b.Number < other.Number
}
