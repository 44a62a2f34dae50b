package lock

import (
	"bytes"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"golang.org/x/sync/errgroup"

	"github.com/HayatoShiba/ppcc/common"
	"github.com/HayatoShiba/ppcc/transaction/txid"
)

var testingBlock = common.NewBlockID("tbl", 1)

// runAsync runs fn in a new goroutine and returns the channel receiving the result
func runAsync(fn func() error) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()
	return done
}

// assertWaiting asserts the request has started waiting and has not returned
func assertWaiting(t *testing.T, lt *Table, mode Mode, waits float64, done <-chan error) {
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(lt.Metrics().Waits.WithLabelValues(mode.String())) == waits
	}, time.Second, time.Millisecond)
	select {
	case err := <-done:
		t.Fatalf("the request must wait, but returned %v", err)
	default:
	}
}

func TestSLock(t *testing.T) {
	t.Run("shared lock is held by many transactions", func(t *testing.T) {
		lt := TestingNewTable()
		for _, txID := range []txid.TxID{3, 1, 2} {
			err := lt.SLock(testingBlock, txID)
			assert.Nil(t, err)
		}
		mode, holders := lt.Holders(testingBlock)
		assert.Equal(t, ModeShared, mode)
		assert.Equal(t, []txid.TxID{3, 1, 2}, holders)
	})
	t.Run("shared lock is not duplicated", func(t *testing.T) {
		lt := TestingNewTable()
		assert.Nil(t, lt.SLock(testingBlock, 1))
		assert.Nil(t, lt.SLock(testingBlock, 1))
		_, holders := lt.Holders(testingBlock)
		assert.Equal(t, []txid.TxID{1}, holders)

		// one unlock releases the lock
		lt.Unlock(testingBlock, 1)
		mode, _ := lt.Holders(testingBlock)
		assert.Equal(t, ModeNone, mode)
	})
	t.Run("exclusive holder can acquire shared lock without change", func(t *testing.T) {
		lt := TestingNewTable()
		assert.Nil(t, lt.XLock(testingBlock, 4))
		assert.Nil(t, lt.SLock(testingBlock, 4))
		mode, holders := lt.Holders(testingBlock)
		assert.Equal(t, ModeExclusive, mode)
		assert.Equal(t, []txid.TxID{4}, holders)
	})
}

func TestWaitDie(t *testing.T) {
	// tx 5 holds exclusive lock. tx 9 (younger) dies, tx 2 (older) waits and succeeds after tx 5 unlocks.
	lt := TestingNewTable(WithMaxWait(5 * time.Second))
	assert.Nil(t, lt.SLock(testingBlock, 5))
	assert.Nil(t, lt.XLock(testingBlock, 5))

	start := time.Now()
	err := lt.SLock(testingBlock, 9)
	assert.True(t, errors.Is(err, ErrLockAborted))
	reason, ok := AbortReason(err)
	assert.True(t, ok)
	assert.Equal(t, ReasonWaitDie, reason)
	var ae *AbortError
	assert.True(t, errors.As(err, &ae))
	assert.Equal(t, txid.TxID(5), ae.Holder)
	// the younger dies immediately without waiting
	assert.Less(t, time.Since(start), time.Second)

	done := runAsync(func() error { return lt.SLock(testingBlock, 2) })
	assertWaiting(t, lt, ModeShared, 1, done)

	lt.Unlock(testingBlock, 5)
	assert.Nil(t, <-done)
	mode, holders := lt.Holders(testingBlock)
	assert.Equal(t, ModeShared, mode)
	assert.Equal(t, []txid.TxID{2}, holders)
	assert.Equal(t, 1.0, testutil.ToFloat64(lt.Metrics().Aborts.WithLabelValues(string(ReasonWaitDie))))
}

func TestXLock(t *testing.T) {
	t.Run("sole shared holder upgrades immediately", func(t *testing.T) {
		lt := TestingNewTable()
		assert.Nil(t, lt.SLock(testingBlock, 3))
		assert.Nil(t, lt.XLock(testingBlock, 3))
		mode, holders := lt.Holders(testingBlock)
		assert.Equal(t, ModeExclusive, mode)
		assert.Equal(t, []txid.TxID{3}, holders)

		// already held
		assert.Nil(t, lt.XLock(testingBlock, 3))
		assert.Equal(t, 1.0, testutil.ToFloat64(lt.Metrics().Grants.WithLabelValues(ModeExclusive.String())))
	})
	t.Run("exclusive lock is acquired directly without shared lock", func(t *testing.T) {
		lt := TestingNewTable()
		assert.Nil(t, lt.XLock(testingBlock, 3))
		mode, _ := lt.Holders(testingBlock)
		assert.Equal(t, ModeExclusive, mode)
	})
	t.Run("younger upgrader dies against older shared holder", func(t *testing.T) {
		lt := TestingNewTable()
		assert.Nil(t, lt.SLock(testingBlock, 2))
		assert.Nil(t, lt.SLock(testingBlock, 7))

		err := lt.XLock(testingBlock, 7)
		reason, ok := AbortReason(err)
		assert.True(t, ok)
		assert.Equal(t, ReasonWaitDie, reason)
		// nothing changed
		mode, holders := lt.Holders(testingBlock)
		assert.Equal(t, ModeShared, mode)
		assert.Equal(t, []txid.TxID{2, 7}, holders)
	})
	t.Run("older upgrader waits until younger shared holder unlocks", func(t *testing.T) {
		lt := TestingNewTable(WithMaxWait(5 * time.Second))
		assert.Nil(t, lt.SLock(testingBlock, 2))
		assert.Nil(t, lt.SLock(testingBlock, 7))

		done := runAsync(func() error { return lt.XLock(testingBlock, 2) })
		assertWaiting(t, lt, ModeExclusive, 1, done)

		lt.Unlock(testingBlock, 7)
		assert.Nil(t, <-done)
		mode, holders := lt.Holders(testingBlock)
		assert.Equal(t, ModeExclusive, mode)
		assert.Equal(t, []txid.TxID{2}, holders)
	})
	t.Run("the oldest of the other holders decides", func(t *testing.T) {
		lt := TestingNewTable()
		for _, txID := range []txid.TxID{8, 3, 5} {
			assert.Nil(t, lt.SLock(testingBlock, txID))
		}
		err := lt.XLock(testingBlock, 5)
		var ae *AbortError
		assert.True(t, errors.As(err, &ae))
		assert.Equal(t, txid.TxID(3), ae.Holder)
		assert.Equal(t, ModeExclusive, ae.Mode)
	})
}

func TestLockTimeout(t *testing.T) {
	lt := TestingNewTable()
	assert.Nil(t, lt.XLock(testingBlock, 5))

	start := time.Now()
	err := lt.SLock(testingBlock, 2)
	assert.True(t, errors.Is(err, ErrLockAborted))
	reason, _ := AbortReason(err)
	assert.Equal(t, ReasonTimeout, reason)
	assert.GreaterOrEqual(t, time.Since(start), TestingMaxWait)

	// no holder entry is inserted by the aborted request
	_, holders := lt.Holders(testingBlock)
	assert.Equal(t, []txid.TxID{5}, holders)
	assert.Equal(t, 1.0, testutil.ToFloat64(lt.Metrics().Aborts.WithLabelValues(string(ReasonTimeout))))
}

func TestLockTimeoutWithWakeups(t *testing.T) {
	tests := []struct {
		name   string
		holder func(lt *Table) error
		lock   func(lt *Table) error
	}{
		{
			name:   "shared lock behind exclusive holder",
			holder: func(lt *Table) error { return lt.XLock(testingBlock, 5) },
			lock:   func(lt *Table) error { return lt.SLock(testingBlock, 2) },
		},
		{
			name:   "exclusive lock behind shared holder",
			holder: func(lt *Table) error { return lt.SLock(testingBlock, 5) },
			lock:   func(lt *Table) error { return lt.XLock(testingBlock, 2) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lt := TestingNewTable()
			assert.Nil(t, tt.holder(lt))

			// locking and unlocking another block wakes up every waiter each time
			other := common.NewBlockID("tbl", 2)
			stop := make(chan struct{})
			var eg errgroup.Group
			eg.Go(func() error {
				for {
					select {
					case <-stop:
						return nil
					default:
					}
					if err := lt.SLock(other, 100); err != nil {
						return err
					}
					lt.Unlock(other, 100)
					time.Sleep(time.Millisecond)
				}
			})

			start := time.Now()
			err := tt.lock(lt)
			elapsed := time.Since(start)
			close(stop)
			assert.Nil(t, eg.Wait())

			assert.True(t, errors.Is(err, ErrLockAborted))
			reason, _ := AbortReason(err)
			assert.Equal(t, ReasonTimeout, reason)
			// the deadline is fixed when the request is made, so wake-ups don't extend it
			assert.GreaterOrEqual(t, elapsed, TestingMaxWait)
			assert.Less(t, elapsed, 3*TestingMaxWait)
			_, holders := lt.Holders(testingBlock)
			assert.Equal(t, []txid.TxID{5}, holders)
		})
	}
}

func TestUnlock(t *testing.T) {
	t.Run("unlock without entry does nothing", func(t *testing.T) {
		lt := TestingNewTable()
		lt.Unlock(testingBlock, 1)
		assert.Empty(t, lt.Status())
	})
	t.Run("unlock by non-holder does nothing", func(t *testing.T) {
		lt := TestingNewTable()
		assert.Nil(t, lt.SLock(testingBlock, 1))
		lt.Unlock(testingBlock, 2)
		_, holders := lt.Holders(testingBlock)
		assert.Equal(t, []txid.TxID{1}, holders)
	})
	t.Run("entry is deleted when the last holder unlocks", func(t *testing.T) {
		lt := TestingNewTable()
		assert.Nil(t, lt.SLock(testingBlock, 1))
		assert.Nil(t, lt.SLock(testingBlock, 2))
		lt.Unlock(testingBlock, 1)
		assert.Len(t, lt.Status(), 1)
		lt.Unlock(testingBlock, 2)
		assert.Empty(t, lt.Status())
	})
}

func TestStatus(t *testing.T) {
	lt := TestingNewTable()
	assert.Nil(t, lt.SLock(common.NewBlockID("b", 2), 1))
	assert.Nil(t, lt.SLock(common.NewBlockID("b", 2), 2))
	assert.Nil(t, lt.XLock(common.NewBlockID("a", 9), 3))
	assert.Nil(t, lt.SLock(common.NewBlockID("b", 1), 3))

	st := lt.Status()
	assert.Equal(t, []EntryStatus{
		{Block: common.NewBlockID("a", 9), Mode: ModeExclusive, Holders: []txid.TxID{3}},
		{Block: common.NewBlockID("b", 1), Mode: ModeShared, Holders: []txid.TxID{3}},
		{Block: common.NewBlockID("b", 2), Mode: ModeShared, Holders: []txid.TxID{1, 2}},
	}, st)

	var buf bytes.Buffer
	RenderStatus(&buf, st)
	assert.Contains(t, buf.String(), "[file a, block 9]")
	assert.Contains(t, buf.String(), "exclusive")
}

func TestConcurrentLocks(t *testing.T) {
	// every transaction takes shared then exclusive lock on the same blocks.
	// some die, and nobody waits until timeout because waits never make a cycle.
	lt := TestingNewTable(WithMaxWait(5 * time.Second))
	blocks := []common.BlockID{common.NewBlockID("f", 0), common.NewBlockID("f", 1)}

	var eg errgroup.Group
	for i := 1; i <= 8; i++ {
		txID := txid.TxID(i)
		eg.Go(func() error {
			held := make([]common.BlockID, 0, len(blocks))
			defer func() {
				for _, blk := range held {
					lt.Unlock(blk, txID)
				}
			}()
			for _, blk := range blocks {
				if err := lt.SLock(blk, txID); err != nil {
					return dieOnly(err)
				}
				held = append(held, blk)
				if err := lt.XLock(blk, txID); err != nil {
					return dieOnly(err)
				}
			}
			return nil
		})
	}
	assert.Nil(t, eg.Wait())
	assert.Empty(t, lt.Status())
	assert.Equal(t, 0.0, testutil.ToFloat64(lt.Metrics().Aborts.WithLabelValues(string(ReasonTimeout))))
}

// dieOnly returns nil for wait-die abort, and the error otherwise
func dieOnly(err error) error {
	if reason, ok := AbortReason(err); ok && reason == ReasonWaitDie {
		return nil
	}
	return err
}
