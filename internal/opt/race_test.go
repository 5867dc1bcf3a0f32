package opt

import (
	"sync"
	"testing"
	"time"
	"unsafe"
)

func TestSemaWrapper(t *testing.T) {
	var s Sema

	// 1. Basic block/unblock
	done := make(chan struct{})
	go func() {
		s.Acquire()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Acquire returned before Release")
	case <-time.After(50 * time.Millisecond):
	}

	s.Release()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Acquire did not return after Release")
	}

	// 2. Release before Acquire is remembered
	s.Release()
	ch := make(chan struct{})
	go func() {
		s.Acquire()
		close(ch)
	}()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("early Release was lost")
	}

	// 3. Multiple waiters
	var wg sync.WaitGroup
	n := 10
	wg.Add(n)
	for range n {
		go func() {
			defer wg.Done()
			s.Acquire()
		}()
	}
	time.Sleep(20 * time.Millisecond)
	for range n {
		s.Release()
	}

	all := make(chan struct{})
	go func() {
		wg.Wait()
		close(all)
	}()
	select {
	case <-all:
	case <-time.After(time.Second):
		t.Fatal("Not all waiters woke up")
	}
}

func TestSlotSize(t *testing.T) {
	size := unsafe.Sizeof(Slot_{})
	if !Padded_ {
		if size != 8 {
			t.Fatalf("unpadded slot size = %d, want 8", size)
		}
		return
	}
	if size%CacheLineSize_ != 0 {
		t.Fatalf("slot size %d is not a multiple of cache line %d", size, CacheLineSize_)
	}
}
