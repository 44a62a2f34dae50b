package disk

import (
	"testing"

	"github.com/spf13/afero"
)

// TestingNewFileManager initializes disk manager on os filesystem under t.TempDir()
// because we want to remove the generated file after test is completed
func TestingNewFileManager(t *testing.T) (*Manager, error) {
	return NewManager(afero.NewOsFs(), t.TempDir())
}

// TestingNewMemManager initializes disk manager on in-memory filesystem. This prevents unnecessary disk I/O.
func TestingNewMemManager() (*Manager, error) {
	return NewManager(afero.NewMemMapFs(), DefaultBaseDir)
}
