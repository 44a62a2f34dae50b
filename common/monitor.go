/*
Monitor is the mutex + condition variable pair that buffer manager and lock table are built on.

Both components protect their whole state with one mutex.
When the requested resource (free buffer / lock) is not available, the caller sleeps on the condition variable,
which releases the mutex while sleeping and re-acquires it before waking up.
Whoever releases a resource wakes up every sleeper (broadcast) and each sleeper re-checks its own condition,
because many sleepers may compete for one released resource.

sync.Cond does not support timeout, so WaitUntil arms a timer which broadcasts at the deadline.
The timer broadcasts while holding the mutex. Otherwise the broadcast could happen between the deadline check
and cond.Wait() of the sleeper, and the sleeper would miss it.

The mutex is go-deadlock's Mutex, which behaves like sync.Mutex and additionally reports lock-order inversions
and locks held for too long. The checking is on in tests. ppcc binary turns it off unless built with -tags deadlock
(see /cmd/ppcc/lockcheck.go).
*/
package common

import (
	"sync"
	"time"

	"github.com/sasha-s/go-deadlock"
)

// Monitor is mutex with condition variable
type Monitor struct {
	deadlock.Mutex
	cond *sync.Cond
}

// NewMonitor initializes monitor
func NewMonitor() *Monitor {
	m := &Monitor{}
	m.cond = sync.NewCond(&m.Mutex)
	return m
}

// WaitUntil sleeps until Broadcast is called or the deadline is reached.
// the caller must hold the lock. the lock is held again when this function returns.
// it returns false without sleeping when the deadline has already passed.
// returning true does not mean the condition the caller waits for is satisfied, so the caller must re-check it.
func (m *Monitor) WaitUntil(deadline time.Time) bool {
	d := time.Until(deadline)
	if d <= 0 {
		return false
	}
	timer := time.AfterFunc(d, func() {
		m.Lock()
		m.cond.Broadcast()
		m.Unlock()
	})
	m.cond.Wait()
	timer.Stop()
	return true
}

// Broadcast wakes up all goroutines sleeping in WaitUntil
// the caller is expected to hold the lock
func (m *Monitor) Broadcast() {
	m.cond.Broadcast()
}
