/*
This file defines storage interface, which is the subset of afero.File used by disk manager.
Positional read/write (ReadAt/WriteAt) is used instead of Seek+Read so that
goroutines can read/write different pages of the same file concurrently.
*/
package disk

import (
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/HayatoShiba/ppcc/storage/page"
)

// storage is storage which implements the operations necessary for database file
type storage interface {
	io.ReaderAt
	io.WriterAt
	io.Closer
	Stat() (os.FileInfo, error)
	Sync() error
}

// readFull reads one page at the offset.
// the part beyond the end of the file is 0-filled.
func readFull(st storage, p page.PagePtr, off int64) error {
	n, err := st.ReadAt(p[:], off)
	if err != nil && !errors.Is(err, io.EOF) {
		return errors.Wrap(err, "ReadAt failed")
	}
	if n < len(p) {
		copy(p[n:], make([]byte, len(p)-n))
	}
	return nil
}

// numPages returns the number of pages stored in the storage
func numPages(st storage) (page.PageID, error) {
	stat, err := st.Stat()
	if err != nil {
		return 0, errors.Wrap(err, "Stat failed")
	}
	return page.PageID(stat.Size() / page.PageSize), nil
}
