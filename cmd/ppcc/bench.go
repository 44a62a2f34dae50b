package main

import (
	"context"
	"math/rand"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/HayatoShiba/ppcc/common"
	"github.com/HayatoShiba/ppcc/logging"
	"github.com/HayatoShiba/ppcc/storage/page"
	"github.com/HayatoShiba/ppcc/transaction"
	"github.com/HayatoShiba/ppcc/transaction/lock"
)

// benchFileName is the data file used by bench
const benchFileName = "bench"

type benchFlags struct {
	workers     int
	txns        int
	blocks      int
	metricsAddr string
}

// benchResult is the result of bench
type benchResult struct {
	commits  int64
	failures int64
	// attempts includes the runs restarted after lock abort
	attempts int64
	elapsed  time.Duration
}

func newBenchCmd(gf *globalFlags) *cobra.Command {
	bf := &benchFlags{}
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "run concurrent transactions against the buffer pool and the lock table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := gf.loadConfig()
			if err != nil {
				return err
			}
			defer logging.Close()

			reg := prometheus.NewRegistry()
			e, err := newEngine(cfg, gf.fs, reg)
			if err != nil {
				return errors.Wrap(err, "newEngine failed")
			}
			defer e.close()

			if bf.metricsAddr != "" {
				srv := &http.Server{
					Addr:              bf.metricsAddr,
					Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
					ReadHeaderTimeout: 5 * time.Second,
				}
				go func() {
					if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						logging.GetLogger().Error("metrics server failed", "error", err)
					}
				}()
				defer srv.Close()
			}

			res, err := runBench(cmd.Context(), e, bf)
			if err != nil {
				return err
			}
			cmd.Printf("workers %d, transactions %d: committed %d, failed %d, restarted %d in %s\n",
				bf.workers, bf.workers*bf.txns, res.commits, res.failures,
				res.attempts-res.commits-res.failures, res.elapsed)
			e.bm.Status().Render(cmd.OutOrStdout())
			lock.RenderStatus(cmd.OutOrStdout(), e.lt.Status())
			return nil
		},
	}
	cmd.Flags().IntVar(&bf.workers, "workers", 4, "the number of concurrent workers")
	cmd.Flags().IntVar(&bf.txns, "txns", 100, "the number of transactions per worker")
	cmd.Flags().IntVar(&bf.blocks, "blocks", 16, "the number of blocks the transactions access")
	cmd.Flags().StringVar(&bf.metricsAddr, "metrics-addr", "", "serve prometheus metrics on the address while running (e.g. :9090)")
	return cmd
}

// runBench runs the workload
// each transaction reads two random blocks, and moves 1 from the first to the second.
// so the sum of all blocks never changes as long as transactions are serializable.
func runBench(ctx context.Context, e *engine, bf *benchFlags) (benchResult, error) {
	if bf.workers <= 0 || bf.txns < 0 || bf.blocks < 2 {
		return benchResult{}, errors.Errorf("invalid workload: workers %d, txns %d, blocks %d", bf.workers, bf.txns, bf.blocks)
	}
	if err := e.ensureBlocks(benchFileName, bf.blocks); err != nil {
		return benchResult{}, errors.Wrap(err, "ensureBlocks failed")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var bgwg errgroup.Group
	if e.bw != nil {
		bgwg.Go(func() error {
			return e.bw.Run(ctx)
		})
	}

	var res benchResult
	start := time.Now()
	eg, egctx := errgroup.WithContext(ctx)
	for w := 0; w < bf.workers; w++ {
		rnd := rand.New(rand.NewSource(int64(w)))
		eg.Go(func() error {
			for i := 0; i < bf.txns; i++ {
				from := common.NewBlockID(benchFileName, page.PageID(rnd.Intn(bf.blocks)))
				to := common.NewBlockID(benchFileName, page.PageID(rnd.Intn(bf.blocks)))
				err := e.txm.RunTx(egctx, func(tx *transaction.Tx) error {
					atomic.AddInt64(&res.attempts, 1)
					return transfer(tx, from, to)
				})
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return err
					}
					// the transaction failed finally. the workload continues
					logging.GetLogger().Warn("transaction failed", "error", err)
					atomic.AddInt64(&res.failures, 1)
					continue
				}
				atomic.AddInt64(&res.commits, 1)
			}
			return nil
		})
	}
	err := eg.Wait()
	res.elapsed = time.Since(start)
	cancel()
	if bgErr := bgwg.Wait(); bgErr != nil && err == nil {
		err = errors.Wrap(bgErr, "background writer failed")
	}
	return res, err
}

// transfer moves 1 from the block to the other block
// both blocks are locked exclusively before modification because rollback doesn't undo.
func transfer(tx *transaction.Tx, from, to common.BlockID) error {
	off := page.HeaderSize()
	for _, blk := range []common.BlockID{from, to} {
		if err := tx.SLock(blk); err != nil {
			return err
		}
		if _, err := tx.Pin(blk); err != nil {
			return err
		}
	}
	for _, blk := range []common.BlockID{from, to} {
		if err := tx.XLock(blk); err != nil {
			return err
		}
	}
	v, err := tx.GetInt32(from, off)
	if err != nil {
		return err
	}
	if err := tx.SetInt32(from, off, v-1); err != nil {
		return err
	}
	v, err = tx.GetInt32(to, off)
	if err != nil {
		return err
	}
	return tx.SetInt32(to, off, v+1)
}
