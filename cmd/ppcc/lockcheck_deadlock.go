//go:build deadlock

package main

import (
	"os"

	"github.com/sasha-s/go-deadlock"
)

// setupLockChecking keeps go-deadlock's checking on for debug build.
// the report is written to stderr and the process exits on potential deadlock.
func setupLockChecking() {
	deadlock.Opts.Disable = false
	deadlock.Opts.LogBuf = os.Stderr
}
