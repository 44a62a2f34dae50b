package clog

import (
	"github.com/pkg/errors"

	"github.com/HayatoShiba/ppcc/storage/buffer"
)

// TestingNewManager initializes clog manager on in-memory disk
func TestingNewManager() (*Manager, error) {
	bm, _, err := buffer.TestingNewManager(2)
	if err != nil {
		return nil, errors.Wrap(err, "buffer.TestingNewManager failed")
	}
	return NewManager(bm), nil
}
