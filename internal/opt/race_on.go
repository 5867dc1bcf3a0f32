//go:build race

package opt

import "sync"

// Race_ reports whether the race detector is enabled.
// Stress tests use it to scale down their iteration counts.
const Race_ = true

// Sema is a counting semaphore.
// Under the race detector it is backed by a buffered channel so that the
// release/acquire edge is visible to the detector.
type Sema struct {
	once sync.Once
	ch   chan struct{}
}

func (s *Sema) Acquire() {
	<-s.c()
}

func (s *Sema) Release() {
	s.c() <- struct{}{}
}

func (s *Sema) c() chan struct{} {
	s.once.Do(func() { s.ch = make(chan struct{}, 256) })
	return s.ch
}
