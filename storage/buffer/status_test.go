package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/HayatoShiba/ppcc/common"
)

func TestStatus(t *testing.T) {
	m, _, err := TestingNewManager(3)
	assert.Nil(t, err)

	a, err := m.Pin(common.NewBlockID("tbl", 0))
	assert.Nil(t, err)
	b, err := m.Pin(common.NewBlockID("tbl", 1))
	assert.Nil(t, err)
	_, err = m.Pin(common.NewBlockID("tbl", 1))
	assert.Nil(t, err)
	a.SetModified(7, -1)
	m.Unpin(a)

	st := m.Status()
	assert.Equal(t, 3, st.Size)
	assert.Equal(t, 2, st.Available)
	assert.Equal(t, []BufferID{2, a.ID()}, st.Unpinned)
	assert.Equal(t, []FrameStatus{
		{ID: a.ID(), Block: a.Block(), Pins: 0, ModifyingTx: 7},
		{ID: b.ID(), Block: b.Block(), Pins: 2},
	}, st.Frames)

	out := st.String()
	assert.Contains(t, out, "Buffer pool: size 3, available 2")
	assert.Contains(t, out, "[file tbl, block 1]")
	assert.Contains(t, out, "Unpinned buffers in FIFO order: 2 0")
}
