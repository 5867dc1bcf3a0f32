package leftright

import (
	"sync/atomic"

	"github.com/llxisdsh/leftright/internal/opt"
)

// Epoch is a monotonically increasing counter with "wait for target"
// semantics. Each left-right instance owns one and advances it once per
// publish; readers record its value when they enter a guard.
//
// Features:
//   - Add(n): Advances the epoch by n.
//   - WaitAtLeast(n): Blocks until the epoch reaches at least n.
//
// Waiters are kept in an ordered list and only those whose targets are met
// are woken, so a single Add does not stampede unrelated waiters.
//
// The zero value is ready to use.
//
// Example:
//
//	var e Epoch
//	go func() { e.WaitAtLeast(5); print("Reached 5!") }()
//	e.Add(5) // Wakes the waiter
type Epoch struct {
	_       noCopy
	state   atomic.Uint64
	waiters atomic.Int32
	mu      ticketLock
	head    *epochWaiter
	tail    *epochWaiter
}

type epochWaiter struct {
	target uint64
	sema   opt.Sema
	// next is protected by Epoch.mu
	next *epochWaiter
}

// Current returns the current epoch value.
func (e *Epoch) Current() uint64 {
	return e.state.Load()
}

// Add advances the epoch by delta, wakes waiters whose targets are met and
// returns the new value.
func (e *Epoch) Add(delta uint64) uint64 {
	if delta == 0 {
		return e.Current()
	}
	newVal := e.state.Add(delta)

	// A waiter increments waiters before its final state check, so a zero
	// count here means nobody can be waiting for newVal.
	if e.waiters.Load() == 0 {
		return newVal
	}

	e.mu.lock()
	var prev *epochWaiter
	curr := e.head
	for curr != nil {
		next := curr.next
		if curr.target <= newVal {
			if prev == nil {
				e.head = next
			} else {
				prev.next = next
			}
			if curr == e.tail {
				e.tail = prev
			}
			e.waiters.Add(-1)
			curr.sema.Release()
		} else {
			prev = curr
		}
		curr = next
	}
	e.mu.unlock()
	return newVal
}

// WaitAtLeast blocks until the epoch reaches at least the target value.
func (e *Epoch) WaitAtLeast(target uint64) {
	if e.state.Load() >= target {
		return
	}

	e.waiters.Add(1)
	e.mu.lock()
	if e.state.Load() >= target {
		e.mu.unlock()
		e.waiters.Add(-1)
		return
	}
	w := &epochWaiter{target: target}
	if e.tail == nil {
		e.head = w
		e.tail = w
	} else {
		e.tail.next = w
		e.tail = w
	}
	e.mu.unlock()

	w.sema.Acquire()
}
