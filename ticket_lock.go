package leftright

import (
	"sync/atomic"
)

// ticketLock is a fair, FIFO spin-lock.
//
// Goroutines acquire the lock in the exact order they called lock().
// It guards the waiter list of an Epoch; critical sections are a few
// pointer updates.
type ticketLock struct {
	_       noCopy
	next    atomic.Uint32
	serving atomic.Uint32
}

func (m *ticketLock) lock() {
	my := m.next.Add(1) - 1
	var spins int
	for {
		if m.serving.Load() == my {
			return
		}
		delay(&spins)
	}
}

func (m *ticketLock) unlock() {
	m.serving.Add(1)
}
