package disk

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"

	"github.com/HayatoShiba/ppcc/common"
	"github.com/HayatoShiba/ppcc/storage/page"
)

func TestNewManager(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, err := NewManager(fs, "a/b/c")
	assert.Nil(t, err)
	exists, err := afero.DirExists(fs, "a/b/c")
	assert.Nil(t, err)
	assert.True(t, exists)
}

func TestReadWritePage(t *testing.T) {
	managers := []struct {
		name string
		new  func(t *testing.T) (*Manager, error)
	}{
		{
			name: "in-memory filesystem",
			new: func(t *testing.T) (*Manager, error) {
				return TestingNewMemManager()
			},
		},
		{
			name: "os filesystem",
			new:  TestingNewFileManager,
		},
	}
	for _, tm := range managers {
		t.Run(tm.name, func(t *testing.T) {
			m, err := tm.new(t)
			assert.Nil(t, err)
			defer m.Close()

			blk := common.NewBlockID("testfile", 2)
			p := page.TestingNewRandomPage()
			err = m.WritePage(blk, p)
			assert.Nil(t, err)

			got := page.NewPagePtr()
			err = m.ReadPage(blk, got)
			assert.Nil(t, err)
			assert.True(t, bytes.Equal(p[:], got[:]))

			// blocks 0 and 1 have been never written, but the file has grown
			n, err := m.NumPages("testfile")
			assert.Nil(t, err)
			assert.Equal(t, page.PageID(3), n)
		})
	}
}

func TestReadPageBeyondEOF(t *testing.T) {
	m, err := TestingNewMemManager()
	assert.Nil(t, err)

	p := page.TestingNewRandomPage()
	err = m.ReadPage(common.NewBlockID("empty", 10), p)
	assert.Nil(t, err)
	// the page must be 0-filled
	assert.Equal(t, *page.NewPagePtr(), *p)
}

func TestExtendPage(t *testing.T) {
	m, err := TestingNewMemManager()
	assert.Nil(t, err)

	for i := 0; i < 3; i++ {
		blk, err := m.ExtendPage("ext")
		assert.Nil(t, err)
		assert.Equal(t, common.NewBlockID("ext", page.PageID(i)), blk)
	}
	n, err := m.NumPages("ext")
	assert.Nil(t, err)
	assert.Equal(t, page.PageID(3), n)
}

func TestGetFilePath(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		wantErr  bool
	}{
		{
			name:     "plain file name",
			fileName: "users.tbl",
			wantErr:  false,
		},
		{
			name:     "empty",
			fileName: "",
			wantErr:  true,
		},
		{
			name:     "escape from base directory",
			fileName: "../etc/passwd",
			wantErr:  true,
		},
		{
			name:     "hidden file",
			fileName: ".hidden",
			wantErr:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := getFilePath("base", tt.fileName)
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}
}

func TestClose(t *testing.T) {
	m, err := TestingNewMemManager()
	assert.Nil(t, err)
	_, err = m.ExtendPage("a")
	assert.Nil(t, err)
	assert.Nil(t, m.Close())
	// the handle is re-opened after close
	n, err := m.NumPages("a")
	assert.Nil(t, err)
	assert.Equal(t, page.PageID(1), n)
}
