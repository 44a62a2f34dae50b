/*
Page is the unit of I/O.
Disk manager organizes file as a collection of pages, and buffer manager caches pages in buffers.
Page may be called `block` when it is located on disk. The location of page on disk is identified with common.BlockID.

The layout of page is simple:
- page header (lsn only. see header.go)
- the rest is free area which the caller reads/writes through the accessors in this package

Page itself doesn't know anything about tuple layout. It is the job of the record layer, which is out of this module.
*/
package page

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// PageSize is the byte size of page.
// 8KB is the default size in postgres, but the pages here are small so that the buffer pool can be kept small.
// see block_size parameter in https://www.postgresql.org/docs/current/runtime-config-preset.html
const PageSize = 4096

// PageID is the position of page within the file, which is called blockNumber in postgres
// see https://github.com/postgres/postgres/blob/d63d957e330c611f7a8c0ed02e4407f40f975026/src/include/storage/block.h#L17-L31
type PageID uint32

const (
	// first page id in file
	FirstPageID PageID = 0
	// invalid page id
	InvalidPageID PageID = math.MaxUint32
	// max page id
	MaxPageID PageID = math.MaxUint32 - 1
)

// PagePtr is pointer to page
// page is defined as pointer explicitly
// because page should not be passed by value in many cases (for concurrent access and space-efficiency)
type PagePtr *[PageSize]byte

// NewPagePtr returns 0-filled page pointer
func NewPagePtr() PagePtr {
	p := &[PageSize]byte{}
	return PagePtr(p)
}

// CalculateFileOffset calculates the page's offset within the file
// the page size is fixed so that it is easy to calculate the offset
func CalculateFileOffset(pageID PageID) int64 {
	return int64(pageID) * PageSize
}

// Clear fills the page with 0
func Clear(p PagePtr) {
	*p = [PageSize]byte{}
}

// int32Size is the byte size of int32 value in page
const int32Size = 4

// checkRange checks [off, off+size) is within the data area of page
func checkRange(off, size int) error {
	if off < headerSize || size < 0 || off+size > PageSize {
		return errors.Errorf("out of page range: offset %d, size %d", off, size)
	}
	return nil
}

// GetInt32 returns int32 value stored at the offset
func GetInt32(p PagePtr, off int) (int32, error) {
	if err := checkRange(off, int32Size); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(p[off : off+int32Size])), nil
}

// SetInt32 stores int32 value at the offset
func SetInt32(p PagePtr, off int, v int32) error {
	if err := checkRange(off, int32Size); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(p[off:off+int32Size], uint32(v))
	return nil
}

// GetBytes returns the length-prefixed byte slice stored at the offset
// the returned slice is a copy, so the caller can use it after the buffer is unpinned
func GetBytes(p PagePtr, off int) ([]byte, error) {
	l, err := GetInt32(p, off)
	if err != nil {
		return nil, errors.Wrap(err, "GetInt32 failed")
	}
	start := off + int32Size
	if err := checkRange(start, int(l)); err != nil {
		return nil, err
	}
	b := make([]byte, l)
	copy(b, p[start:start+int(l)])
	return b, nil
}

// SetBytes stores the byte slice at the offset with its length as prefix
func SetBytes(p PagePtr, off int, b []byte) error {
	if err := checkRange(off, int32Size+len(b)); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(p[off:off+int32Size], uint32(len(b)))
	copy(p[off+int32Size:], b)
	return nil
}

// GetString returns the string stored at the offset
func GetString(p PagePtr, off int) (string, error) {
	b, err := GetBytes(p, off)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// SetString stores the string at the offset
func SetString(p PagePtr, off int, s string) error {
	return SetBytes(p, off, []byte(s))
}

// MaxLength returns the byte size which the string with strlen needs in page
func MaxLength(strlen int) int {
	return int32Size + strlen
}
