package lock

import (
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// RenderStatus writes the lock status as table
// the format is for human and may change
func RenderStatus(w io.Writer, st []EntryStatus) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Block", "Mode", "Holders"})
	for _, es := range st {
		holders := make([]string, 0, len(es.Holders))
		for _, h := range es.Holders {
			holders = append(holders, h.String())
		}
		table.Append([]string{es.Block.String(), es.Mode.String(), strings.Join(holders, " ")})
	}
	table.Render()
}
