//go:build !deadlock

package main

import "github.com/sasha-s/go-deadlock"

// setupLockChecking turns off go-deadlock's checking, so every deadlock.Mutex works as plain sync.Mutex.
// the checking records the stack on every lock and exits the process when a lock waits for more than 30s,
// which is too expensive for release build. build with -tags deadlock to keep it on.
func setupLockChecking() {
	deadlock.Opts.Disable = true
}
