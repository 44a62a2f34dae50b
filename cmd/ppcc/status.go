package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/HayatoShiba/ppcc/common"
	"github.com/HayatoShiba/ppcc/logging"
	"github.com/HayatoShiba/ppcc/storage/buffer"
	"github.com/HayatoShiba/ppcc/storage/page"
)

type statusFlags struct {
	file   string
	blocks int
}

func newStatusCmd(gf *globalFlags) *cobra.Command {
	sf := &statusFlags{}
	cmd := &cobra.Command{
		Use:   "status",
		Short: "pin blocks of a file and print the buffer pool status",
		Long: "status builds the buffer pool from the configuration, pins the first blocks of the file, " +
			"unpins every other block in reverse order, and prints the status table.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := gf.loadConfig()
			if err != nil {
				return err
			}
			defer logging.Close()

			e, err := newEngine(cfg, gf.fs, nil)
			if err != nil {
				return errors.Wrap(err, "newEngine failed")
			}
			defer e.close()

			st, err := pinAndSnapshot(e.bm, sf.file, sf.blocks)
			if err != nil {
				return err
			}
			cmd.Printf("pool memory %s\n", cfg.PoolMemory())
			st.Render(cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().StringVar(&sf.file, "file", "tbl", "the data file whose blocks are pinned")
	cmd.Flags().IntVar(&sf.blocks, "blocks", 3, "the number of blocks pinned (at most the pool size)")
	return cmd
}

// pinAndSnapshot pins n blocks, unpins every other one from the last, and returns the status
// the rest are unpinned after the snapshot
func pinAndSnapshot(bm *buffer.Manager, fileName string, n int) (buffer.Status, error) {
	if n > bm.Size() {
		return buffer.Status{}, errors.Errorf("blocks %d exceeds the pool size %d", n, bm.Size())
	}
	bufs := make([]*buffer.Buffer, 0, n)
	defer func() {
		for _, buf := range bufs {
			if buf != nil {
				bm.Unpin(buf)
			}
		}
	}()
	for i := 0; i < n; i++ {
		buf, err := bm.Pin(common.NewBlockID(fileName, page.PageID(i)))
		if err != nil {
			return buffer.Status{}, errors.Wrap(err, "bm.Pin failed")
		}
		bufs = append(bufs, buf)
	}
	for i := n - 1; i >= 0; i -= 2 {
		bm.Unpin(bufs[i])
		bufs[i] = nil
	}
	return bm.Status(), nil
}
