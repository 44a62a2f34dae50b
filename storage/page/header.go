/*
Page header stores only lsn.

lsn is log sequence number of the log record which lastly modified the page.
buffer manager doesn't read this field when flushing the page. the buffer itself remembers the lsn
(see /storage/buffer/buffer.go). the lsn is also stored into page header when the page is written so that
recovery can compare the page with log records.
see https://github.com/postgres/postgres/blob/bfcf1b34805f70df48eedeec237230d0cc1154a6/src/include/storage/bufpage.h#L109-L155
*/
package page

import "encoding/binary"

// LSN is log sequence number
type LSN int64

// InvalidLSN indicates no log record is associated
const InvalidLSN LSN = -1

const (
	lsnOffset = 0
	lsnSize   = 8
	// headerSize is the byte size of page header. data area starts here.
	headerSize = lsnOffset + lsnSize
)

// HeaderSize returns the byte size of page header
// the first offset the caller can use for data is HeaderSize()
func HeaderSize() int {
	return headerSize
}

// GetLSN returns lsn stored in page header
func GetLSN(p PagePtr) LSN {
	return LSN(binary.LittleEndian.Uint64(p[lsnOffset : lsnOffset+lsnSize]))
}

// SetLSN stores lsn into page header
func SetLSN(p PagePtr, lsn LSN) {
	binary.LittleEndian.PutUint64(p[lsnOffset:lsnOffset+lsnSize], uint64(lsn))
}
