package leftright

import (
	"sync"
	"testing"
)

func TestRegistry_AddRemove(t *testing.T) {
	var r registry
	id1, s1 := r.add()
	id2, s2 := r.add()
	if id1 == id2 || s1 == s2 {
		t.Fatal("registry handed out a duplicate slot")
	}
	if !s1.clearFor(^uint64(0)) {
		t.Fatal("fresh slot is not inactive")
	}
	if r.len() != 2 {
		t.Fatalf("len = %d, want 2", r.len())
	}

	s1.E.Store(4)
	if s1.clearFor(5) || !s1.clearFor(4) {
		t.Fatal("clearFor compares epochs incorrectly")
	}

	seen := 0
	r.forEach(func(*readerSlot) { seen++ })
	if seen != 2 {
		t.Fatalf("forEach visited %d slots, want 2", seen)
	}

	if !r.remove(id1) || r.remove(id1) {
		t.Fatal("remove should succeed exactly once")
	}
	if s1.E.Load() != inactive {
		t.Fatal("removed slot left active")
	}
	if r.len() != 1 {
		t.Fatalf("len = %d, want 1", r.len())
	}
}

func TestRegistry_ConcurrentChurn(t *testing.T) {
	var r registry
	var wg sync.WaitGroup
	const workers, rounds = 8, 200
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			for range rounds {
				id, _ := r.add()
				r.forEach(func(*readerSlot) {})
				r.remove(id)
			}
		}()
	}
	wg.Wait()
	if r.len() != 0 {
		t.Fatalf("len = %d after churn, want 0", r.len())
	}
}
