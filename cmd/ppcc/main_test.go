package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"

	"github.com/HayatoShiba/ppcc/common"
	"github.com/HayatoShiba/ppcc/config"
	"github.com/HayatoShiba/ppcc/storage/buffer"
	"github.com/HayatoShiba/ppcc/storage/page"
	"github.com/HayatoShiba/ppcc/transaction/lock"
)

// testingEngine builds engine on in-memory filesystem
func testingEngine(t *testing.T) *engine {
	cfg := config.Default()
	cfg.Buffer.PoolSize = 8
	e, err := newEngine(cfg, afero.NewMemMapFs(), nil)
	assert.Nil(t, err)
	return e
}

func TestRunBench(t *testing.T) {
	e := testingEngine(t)
	defer e.close()

	bf := &benchFlags{workers: 4, txns: 20, blocks: 4}
	res, err := runBench(context.Background(), e, bf)
	assert.Nil(t, err)
	assert.Equal(t, int64(80), res.commits+res.failures)
	assert.GreaterOrEqual(t, res.attempts, res.commits)

	// transfers keep the sum of all blocks
	sum := int32(0)
	for i := 0; i < bf.blocks; i++ {
		buf, err := e.bm.Pin(common.NewBlockID(benchFileName, page.PageID(i)))
		assert.Nil(t, err)
		v, err := page.GetInt32(buf.Page(), page.HeaderSize())
		assert.Nil(t, err)
		sum += v
		e.bm.Unpin(buf)
	}
	assert.Equal(t, int32(0), sum)
	assert.Equal(t, 8, e.bm.Available())
	assert.Empty(t, e.lt.Status())
	assert.Empty(t, e.txm.ActiveTxIDs())
}

func TestTransferLocksBeforePin(t *testing.T) {
	e := testingEngine(t)
	defer e.close()

	from := common.NewBlockID(benchFileName, 0)
	to := common.NewBlockID(benchFileName, 1)
	older := e.txm.Begin()
	assert.Nil(t, older.XLock(from))

	// the younger transaction dies on the lock and never pins the block
	younger := e.txm.Begin()
	err := transfer(younger, from, to)
	assert.True(t, errors.Is(err, lock.ErrLockAborted))
	assert.Equal(t, 8, e.bm.Available())
	younger.Rollback()

	assert.Nil(t, transfer(older, from, to))
	assert.Equal(t, 6, e.bm.Available())
	assert.Nil(t, older.Commit())
	assert.Equal(t, 8, e.bm.Available())
}

func TestRunBenchInvalidWorkload(t *testing.T) {
	e := testingEngine(t)
	defer e.close()

	_, err := runBench(context.Background(), e, &benchFlags{workers: 1, txns: 1, blocks: 1})
	assert.NotNil(t, err)
}

func TestPinAndSnapshot(t *testing.T) {
	e := testingEngine(t)
	defer e.close()

	st, err := pinAndSnapshot(e.bm, "tbl", 4)
	assert.Nil(t, err)
	// buffers 3 and 1 were unpinned in this order after the free buffers 4..7
	assert.Equal(t, []buffer.BufferID{4, 5, 6, 7, 3, 1}, st.Unpinned)
	assert.Len(t, st.Frames, 4)
	assert.Equal(t, 6, st.Available)
	assert.Contains(t, st.String(), "Unpinned buffers in FIFO order: 4 5 6 7 3 1")
	// everything is unpinned after the snapshot
	assert.Equal(t, 8, e.bm.Available())

	_, err = pinAndSnapshot(e.bm, "tbl", 9)
	assert.NotNil(t, err)
}

func TestCommands(t *testing.T) {
	fs := afero.NewMemMapFs()
	assert.Nil(t, afero.WriteFile(fs, "ppcc.yaml", []byte("data_dir: /data\nbuffer:\n  pool_memory: 32KiB\n  bgwriter_delay: 5ms\nlog:\n  level: ERROR\n"), 0600))

	tests := []struct {
		name     string
		args     []string
		contains string
	}{
		{
			name:     "version",
			args:     []string{"version"},
			contains: "ppcc dev",
		},
		{
			name:     "status",
			args:     []string{"status", "--config", "ppcc.yaml", "--blocks", "2"},
			contains: "pool memory 32 KiB",
		},
		{
			name:     "bench",
			args:     []string{"bench", "--config", "ppcc.yaml", "--workers", "2", "--txns", "5", "--blocks", "3"},
			contains: "transactions 10: committed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newRootCmd(fs)
			cmd.SetArgs(tt.args)
			var out bytes.Buffer
			cmd.SetOut(&out)

			err := cmd.Execute()
			assert.Nil(t, err)
			assert.Contains(t, out.String(), tt.contains)
		})
	}
}
