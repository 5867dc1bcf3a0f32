package benchmark

import (
	"sync"
	"sync/atomic"

	"github.com/llxisdsh/leftright"
	"github.com/llxisdsh/pb"
	"github.com/puzpuzpuz/xsync/v4"
)

// ============================================================================
// Store Adapters
// ============================================================================

// Store is a read-mostly int map shared by one writer and many readers.
// NewReader returns a per-goroutine lookup function and a release func.
type Store interface {
	Store(key, value int)
	NewReader() (load func(key int) (int, bool), done func())
}

type storeCase struct {
	name string
	new  func(keys int) Store
}

var storeCases = []storeCase{
	{"LeftRight", newLeftRightStore},
	{"RWMutex", newRWMutexStore},
	{"RBMutex", newRBMutexStore},
	{"AtomicPointerCOW", newCOWStore},
	{"pb.MapOf", newMapOfStore},
}

func populate(s Store, keys int) Store {
	for i := range keys {
		s.Store(i, i)
	}
	return s
}

// ---- leftright ----

type setOp struct{ k, v int }

func (o setOp) Apply(m *map[int]int) { (*m)[o.k] = o.v }

type leftRightStore struct {
	mu sync.Mutex
	w  *leftright.WriteHandle[map[int]int]
	f  *leftright.Factory[map[int]int]
}

func newLeftRightStore(keys int) Store {
	w, f := leftright.New(func() map[int]int { return make(map[int]int, keys) })
	return populate(&leftRightStore{w: w, f: f}, keys)
}

func (s *leftRightStore) Store(k, v int) {
	s.mu.Lock()
	s.w.PublishWith(setOp{k, v})
	s.mu.Unlock()
}

func (s *leftRightStore) NewReader() (func(int) (int, bool), func()) {
	h := s.f.Handle()
	return func(k int) (int, bool) {
		g := h.Enter()
		v, ok := (*g.Get())[k]
		g.Release()
		return v, ok
	}, h.Close
}

// ---- sync.RWMutex ----

type rwMutexStore struct {
	mu sync.RWMutex
	m  map[int]int
}

func newRWMutexStore(keys int) Store {
	return populate(&rwMutexStore{m: make(map[int]int, keys)}, keys)
}

func (s *rwMutexStore) Store(k, v int) {
	s.mu.Lock()
	s.m[k] = v
	s.mu.Unlock()
}

func (s *rwMutexStore) NewReader() (func(int) (int, bool), func()) {
	return func(k int) (int, bool) {
		s.mu.RLock()
		v, ok := s.m[k]
		s.mu.RUnlock()
		return v, ok
	}, func() {}
}

// ---- xsync.RBMutex ----

type rbMutexStore struct {
	mu *xsync.RBMutex
	m  map[int]int
}

func newRBMutexStore(keys int) Store {
	return populate(&rbMutexStore{mu: xsync.NewRBMutex(), m: make(map[int]int, keys)}, keys)
}

func (s *rbMutexStore) Store(k, v int) {
	s.mu.Lock()
	s.m[k] = v
	s.mu.Unlock()
}

func (s *rbMutexStore) NewReader() (func(int) (int, bool), func()) {
	return func(k int) (int, bool) {
		t := s.mu.RLock()
		v, ok := s.m[k]
		s.mu.RUnlock(t)
		return v, ok
	}, func() {}
}

// ---- copy-on-write atomic.Pointer ----

type cowStore struct {
	mu sync.Mutex
	p  atomic.Pointer[map[int]int]
}

func newCOWStore(keys int) Store {
	s := &cowStore{}
	m := make(map[int]int, keys)
	s.p.Store(&m)
	return populate(s, keys)
}

func (s *cowStore) Store(k, v int) {
	s.mu.Lock()
	old := *s.p.Load()
	m := make(map[int]int, len(old)+1)
	for key, val := range old {
		m[key] = val
	}
	m[k] = v
	s.p.Store(&m)
	s.mu.Unlock()
}

func (s *cowStore) NewReader() (func(int) (int, bool), func()) {
	return func(k int) (int, bool) {
		v, ok := (*s.p.Load())[k]
		return v, ok
	}, func() {}
}

// ---- pb.MapOf ----

type mapOfStore struct {
	m pb.MapOf[int, int]
}

func newMapOfStore(keys int) Store {
	return populate(&mapOfStore{}, keys)
}

func (s *mapOfStore) Store(k, v int) { s.m.Store(k, v) }

func (s *mapOfStore) NewReader() (func(int) (int, bool), func()) {
	return s.m.Load, func() {}
}
