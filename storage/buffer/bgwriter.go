/*
Dirty pages have to be written out to disk before the buffer is reused,
otherwise the modification is dropped (buffer manager never flushes the victim).
Transactions flush their own pages at commit, but background writing is introduced
so that unpinned dirty pages are written out ahead of time.
Background writer periodically walks the unpinned list from the head (the next victims), and
if the buffer is dirty, the writer writes out the page to disk.

for parameters defined in postgres, see 20.4.5 in the link below.
https://www.postgresql.org/docs/current/runtime-config-resource.html#RUNTIME-CONFIG-RESOURCE-BACKGROUND-WRITER
*/
package buffer

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

const (
	// delay between active rounds
	// default is 200ms in postgres
	DefaultBGWriterDelay = 200 * time.Millisecond
	// in each round, 100 buffers are flushed at most
	// see https://www.postgresql.org/docs/current/runtime-config-resource.html
	DefaultBGWriterMaxPages = 100
)

// BackgroundWriter flushes unpinned dirty buffers periodically
type BackgroundWriter struct {
	m *Manager
	// Delay is the sleep between rounds
	Delay time.Duration
	// MaxPages is the max number of pages flushed in one round
	MaxPages int
}

// NewBackgroundWriter initializes background writer
// non-positive parameters are replaced with the defaults
func NewBackgroundWriter(m *Manager, delay time.Duration, maxPages int) *BackgroundWriter {
	if delay <= 0 {
		delay = DefaultBGWriterDelay
	}
	if maxPages <= 0 {
		maxPages = DefaultBGWriterMaxPages
	}
	return &BackgroundWriter{
		m:        m,
		Delay:    delay,
		MaxPages: maxPages,
	}
}

// Run is background writing
// this function flushes dirty buffers on background periodically until ctx is done.
// postgres implements in more complicated way (e.g. estimates how many buffers will be reused soon)
// see https://github.com/postgres/postgres/blob/d9d873bac67047cfacc9f5ef96ee488f2cb0f1c3/src/backend/storage/buffer/bufmgr.c#L2224
func (bw *BackgroundWriter) Run(ctx context.Context) error {
	ticker := time.NewTicker(bw.Delay)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		written, err := bw.m.FlushDirty(bw.MaxPages)
		if err != nil {
			return errors.Wrap(err, "FlushDirty failed")
		}
		if written > 0 {
			bw.m.logger.Debug("background writer flushed buffers", "pages", written)
		}
	}
}
