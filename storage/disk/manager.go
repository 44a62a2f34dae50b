/*
Disk manager deals with the files under base directory. It is the I/O collaborator of buffer manager:
it reads a block into a page and writes a page back to its block. Nothing more.

The files are accessed through afero.Fs, so the same code runs on os filesystem (afero.NewOsFs)
and on in-memory filesystem (afero.NewMemMapFs) in test. We don't want to execute disk I/O in test.

The implementation of disk manager is based on src/backend/storage/smgr directory in postgres.
See smgr README https://github.com/postgres/postgres/blob/b0a55e43299c4ea2a9a8c757f9c26352407d0ccc/src/backend/storage/smgr/README#L1

fsync is not executed on each write. durability ordering is the job of the log collaborator
and checkpointing, which are out of this module.
*/
package disk

import (
	"github.com/pkg/errors"
	"github.com/sasha-s/go-deadlock"
	"github.com/spf13/afero"

	"github.com/HayatoShiba/ppcc/common"
	"github.com/HayatoShiba/ppcc/storage/page"
)

// DefaultBaseDir is the directory path of database files
var DefaultBaseDir = "base/database"

// Manager manages disk
type Manager struct {
	fs      afero.Fs
	baseDir string
	// opener caches file handles after open the files
	// mu protects the cache and serializes I/O on the handles.
	// (the file of afero in-memory filesystem keeps the offset inside the handle even for ReadAt/WriteAt)
	mu     deadlock.Mutex
	opener *fileOpener
}

// NewManager initializes disk manager
func NewManager(fs afero.Fs, baseDir string) (*Manager, error) {
	if err := fs.MkdirAll(baseDir, 0700); err != nil {
		return nil, errors.Wrap(err, "fs.MkdirAll failed")
	}
	return &Manager{
		fs:      fs,
		baseDir: baseDir,
		opener:  newFileOpener(fs, baseDir),
	}, nil
}

// ReadPage reads the block into the page
// when the block is beyond the end of the file, the page is 0-filled.
// (this happens when the block has been extended in buffer but has never been written out)
func (m *Manager) ReadPage(blk common.BlockID, p page.PagePtr) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, err := m.opener.open(blk.FileName)
	if err != nil {
		return errors.Wrap(err, "opener.open failed")
	}
	if err := readFull(st, p, page.CalculateFileOffset(blk.Number)); err != nil {
		return errors.Wrapf(err, "read %s failed", blk)
	}
	return nil
}

// WritePage writes the page into the block
func (m *Manager) WritePage(blk common.BlockID, p page.PagePtr) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, err := m.opener.open(blk.FileName)
	if err != nil {
		return errors.Wrap(err, "opener.open failed")
	}
	if _, err := st.WriteAt(p[:], page.CalculateFileOffset(blk.Number)); err != nil {
		return errors.Wrapf(err, "write %s failed", blk)
	}
	return nil
}

// ExtendPage appends a 0-filled page to the file and returns its block id
// see https://github.com/postgres/postgres/blob/85d8b30724c0fd117a683cc72706f71b28463a05/src/backend/storage/smgr/md.c#L428
func (m *Manager) ExtendPage(fileName string) (common.BlockID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, err := m.opener.open(fileName)
	if err != nil {
		return common.BlockID{}, errors.Wrap(err, "opener.open failed")
	}
	n, err := numPages(st)
	if err != nil {
		return common.BlockID{}, errors.Wrap(err, "numPages failed")
	}
	if n > page.MaxPageID {
		return common.BlockID{}, errors.Errorf("file %s cannot be extended anymore", fileName)
	}
	blk := common.NewBlockID(fileName, n)
	if _, err := st.WriteAt(page.NewPagePtr()[:], page.CalculateFileOffset(n)); err != nil {
		return common.BlockID{}, errors.Wrapf(err, "extend %s failed", blk)
	}
	return blk, nil
}

// NumPages returns the number of pages in the file
func (m *Manager) NumPages(fileName string) (page.PageID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, err := m.opener.open(fileName)
	if err != nil {
		return 0, errors.Wrap(err, "opener.open failed")
	}
	return numPages(st)
}

// Sync flushes the file contents to the durable storage
func (m *Manager) Sync(fileName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, err := m.opener.open(fileName)
	if err != nil {
		return errors.Wrap(err, "opener.open failed")
	}
	return errors.Wrap(st.Sync(), "Sync failed")
}

// Close closes all the cached file handles
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opener.closeAll()
}
