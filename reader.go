package leftright

import (
	"runtime"
	"slices"
)

// Factory creates read handles for one left-right instance. It is safe for
// concurrent use; hand it to whatever goroutines need their own readers.
type Factory[T any] struct {
	in *inner[T]
}

// Handle returns a new read handle with its own epoch slot.
//
// A handle must be used by one goroutine at a time. Close it when done; a
// handle that is garbage collected without Close is unregistered by a
// runtime cleanup, but until then a guard leaked with it keeps stalling
// publishes.
func (f *Factory[T]) Handle() *ReadHandle[T] {
	gt := &f.in.guardTable
	id, slot := gt.readers.add()
	h := &ReadHandle[T]{
		in:      f.in,
		factory: f,
		slot:    slot,
		id:      id,
		live:    make([]uint64, 0, 4),
	}
	h.cleanup = runtime.AddCleanup(h, func(id uint64) { gt.dropReader(id) }, id)
	return h
}

// Readers returns the number of live read handles.
func (f *Factory[T]) Readers() int {
	return f.in.readers.len()
}

// Published returns the epoch of the most recent publish, 0 before the first.
func (f *Factory[T]) Published() uint64 {
	return f.in.epoch.Current()
}

// WaitPublished blocks until the publish with the given epoch (as returned
// by WriteHandle.Publish) has flipped the active copy. Guards taken after it
// returns observe every operation appended before that publish.
func (f *Factory[T]) WaitPublished(epoch uint64) {
	f.in.epoch.WaitAtLeast(epoch)
}

// ReadHandle gives one goroutine wait-free read access to the active copy.
//
// Enter never blocks and touches no state shared with other readers: it
// stores the current epoch into the handle's own slot and loads the active
// index. It does not allocate unless guards nest more than four deep.
type ReadHandle[T any] struct {
	_       noCopy
	in      *inner[T]
	factory *Factory[T]
	slot    *readerSlot
	id      uint64
	cleanup runtime.Cleanup

	// live holds the tokens of unreleased guards. The slot records an epoch
	// while it is non-empty.
	live   []uint64
	seq    uint64
	view   *T
	closed bool
}

// Enter takes a guard on the active copy. The copy seen through the guard
// does not change until the guard is released, even if the writer publishes
// in the meantime; it is the writer that waits.
//
// Nested Enter calls on the same handle return guards on the same copy, and
// the slot stays held until every one of them is released, in any order.
// Holding a guard across a blocking operation delays every publish behind
// it; holding one forever stalls the writer forever.
func (h *ReadHandle[T]) Enter() Guard[T] {
	if h.closed {
		panic("leftright: Enter on closed ReadHandle")
	}
	if len(h.live) == 0 {
		// The slot store must come before the active load: a writer that
		// sees this slot clear after a flip relies on it.
		h.slot.E.Store(h.in.epoch.Current())
		h.view = &h.in.copies[h.in.active.Load()]
	}
	h.seq++
	h.live = append(h.live, h.seq)
	return Guard[T]{h: h, v: h.view, seq: h.seq}
}

// Read calls fn with the active copy under a guard. The guard is released
// when fn returns or panics. fn must not retain the pointer.
func (h *ReadHandle[T]) Read(fn func(v *T)) {
	g := h.Enter()
	defer g.Release()
	fn(g.Get())
}

// Clone returns a new, independent read handle for the same instance.
func (h *ReadHandle[T]) Clone() *ReadHandle[T] {
	return h.factory.Handle()
}

// Factory returns the factory this handle was created from.
func (h *ReadHandle[T]) Factory() *Factory[T] {
	return h.factory
}

// WriterClosed reports whether the write handle has been closed. The last
// published value stays readable after that.
func (h *ReadHandle[T]) WriterClosed() bool {
	return h.in.closed.Load()
}

// Close unregisters the handle. Guards still outstanding on it are
// abandoned: the writer stops waiting for them, so their pointers must not
// be used afterwards. Close is idempotent.
func (h *ReadHandle[T]) Close() {
	if h.closed {
		return
	}
	h.closed = true
	h.live = h.live[:0]
	h.view = nil
	h.cleanup.Stop()
	h.in.dropReader(h.id)
}

// leave drops the guard with token seq. Tokens are never reused, so a stale
// copy of an already released guard finds nothing to drop.
func (h *ReadHandle[T]) leave(seq uint64) {
	if h.closed {
		return
	}
	i := slices.Index(h.live, seq)
	if i < 0 {
		return
	}
	h.live = slices.Delete(h.live, i, i+1)
	if len(h.live) == 0 {
		h.view = nil
		h.slot.E.Store(inactive)
		h.in.wake()
	}
}

// Guard is a scoped read-only view of the copy that was active when it was
// taken. Release it as soon as possible, typically with defer.
type Guard[T any] struct {
	h   *ReadHandle[T]
	v   *T
	seq uint64
}

// Get returns the guarded copy. It must be treated as read-only and must not
// be used after Release. It returns nil for a zero Guard or after Release
// was called on this variable.
func (g *Guard[T]) Get() *T {
	return g.v
}

// Release ends the guard. Each Enter is released at most once: calling
// Release again, on the same variable or on a copy of the Guard, is a no-op
// and never ends another guard of the handle. Get on a copy still returns
// the pointer after the guard has ended, and it must not be used then.
func (g *Guard[T]) Release() {
	h := g.h
	if h == nil {
		return
	}
	g.h, g.v = nil, nil
	h.leave(g.seq)
}

// dropReader removes a reader slot, waking a parked writer if one may be
// waiting on it.
func (gt *guardTable) dropReader(id uint64) {
	if gt.readers.remove(id) {
		gt.wake()
	}
}

// wake bumps released if a writer is parked in a quiescence wait. The load of
// parked must follow the reader's inactive store.
func (gt *guardTable) wake() {
	if gt.parked.Load() != 0 {
		gt.released.Add(1)
	}
}
