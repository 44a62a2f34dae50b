/*
This file defines the opener, which opens the files under base directory and caches the handles.
Postgres manages file descriptors by itself (virtual file descriptor) not to exceed system limits,
but here every opened file is just kept open until Close().
see https://github.com/postgres/postgres/blob/2d4f1ba6cfc2f0a977f1c30bda9848041343e248/src/backend/storage/file/fd.c#L1-L71
*/
package disk

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// fileOpener opens file
type fileOpener struct {
	fs      afero.Fs
	baseDir string
	// cache file handles after open the files
	st map[string]storage
}

// newFileOpener initializes fileOpener
func newFileOpener(fs afero.Fs, baseDir string) *fileOpener {
	return &fileOpener{
		fs:      fs,
		baseDir: baseDir,
		st:      make(map[string]storage),
	}
}

// open opens and returns specified file under base directory
func (fo *fileOpener) open(fileName string) (storage, error) {
	// when file handle is cached, just return it
	if st, ok := fo.st[fileName]; ok {
		return st, nil
	}
	path, err := getFilePath(fo.baseDir, fileName)
	if err != nil {
		return nil, err
	}
	f, err := fo.fs.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, errors.Wrap(err, "fs.OpenFile failed")
	}
	fo.st[fileName] = f
	return f, nil
}

// closeAll closes all cached file handles
// the first error is returned, but all handles are tried to be closed
func (fo *fileOpener) closeAll() error {
	var first error
	for name, st := range fo.st {
		if err := st.Close(); err != nil && first == nil {
			first = errors.Wrapf(err, "close %s failed", name)
		}
		delete(fo.st, name)
	}
	return first
}

// getFilePath returns file path under base directory
// file name must not escape from base directory
func getFilePath(baseDir, fileName string) (string, error) {
	if fileName == "" || fileName != filepath.Base(fileName) || strings.HasPrefix(fileName, ".") {
		return "", errors.Errorf("invalid file name: %q", fileName)
	}
	return filepath.Join(baseDir, fileName), nil
}
