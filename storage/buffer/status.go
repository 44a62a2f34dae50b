package buffer

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/HayatoShiba/ppcc/common"
	"github.com/HayatoShiba/ppcc/transaction/txid"
)

// FrameStatus is the snapshot of one buffer holding a block
type FrameStatus struct {
	ID          BufferID
	Block       common.BlockID
	Pins        int
	ModifyingTx txid.TxID
}

// Pinned checks whether the buffer was pinned
func (fs FrameStatus) Pinned() bool {
	return fs.Pins > 0
}

// Status is the snapshot of buffer pool for diagnostics
type Status struct {
	Size      int
	Available int
	// Frames is buffers holding block, sorted by buffer id
	Frames []FrameStatus
	// Unpinned is unpinned buffers in the order they are reused
	Unpinned []BufferID
}

// Status returns the snapshot of buffer pool
func (m *Manager) Status() Status {
	m.mon.Lock()
	defer m.mon.Unlock()

	st := Status{
		Size:      len(m.buffers),
		Available: m.available,
		Unpinned:  m.unpinned.ids(),
	}
	// m.buffers is ordered by buffer id
	for _, buf := range m.buffers {
		if !buf.assigned {
			continue
		}
		st.Frames = append(st.Frames, FrameStatus{
			ID:          buf.id,
			Block:       buf.blk,
			Pins:        buf.pins,
			ModifyingTx: buf.txID,
		})
	}
	return st
}

// Render writes the status as table
// the format is for human and may change
func (st Status) Render(w io.Writer) {
	fmt.Fprintf(w, "Buffer pool: size %d, available %d\n", st.Size, st.Available)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Buffer", "Block", "Pins", "Pinned", "Modified by"})
	for _, fs := range st.Frames {
		modifiedBy := "-"
		if fs.ModifyingTx.IsValid() {
			modifiedBy = fs.ModifyingTx.String()
		}
		table.Append([]string{
			strconv.Itoa(int(fs.ID)),
			fs.Block.String(),
			strconv.Itoa(fs.Pins),
			strconv.FormatBool(fs.Pinned()),
			modifiedBy,
		})
	}
	table.Render()

	ids := make([]string, 0, len(st.Unpinned))
	for _, id := range st.Unpinned {
		ids = append(ids, strconv.Itoa(int(id)))
	}
	fmt.Fprintf(w, "Unpinned buffers in FIFO order: %s\n", strings.Join(ids, " "))
}

// String renders the status into string
func (st Status) String() string {
	var sb strings.Builder
	st.Render(&sb)
	return sb.String()
}
