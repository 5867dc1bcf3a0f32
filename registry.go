package leftright

import (
	"sync/atomic"

	"github.com/llxisdsh/pb"

	"github.com/llxisdsh/leftright/internal/opt"
)

// inactive is the slot value of a reader that holds no guard. It is the
// largest epoch, so an inactive slot is clear for every publish.
const inactive = ^uint64(0)

// readerSlot is the epoch record of one ReadHandle. Only its reader stores
// into it; the writer only loads it.
type readerSlot struct {
	opt.Slot_
}

func newReaderSlot() *readerSlot {
	s := &readerSlot{}
	s.E.Store(inactive)
	return s
}

// clearFor reports whether the reader cannot be looking at the copy that was
// active before the publish that advanced the epoch to target.
func (s *readerSlot) clearFor(target uint64) bool {
	return s.E.Load() >= target
}

// registry holds the slots of all live read handles.
//
// Handles are created and closed rarely compared to reads, and a reader never
// touches the registry on the read path, so a concurrent map keyed by
// handle id serves: registration and removal are lock-free, and the writer
// ranges over it without blocking either.
type registry struct {
	slots pb.MapOf[uint64, *readerSlot]
	ids   atomic.Uint64
	live  atomic.Int64
}

// add registers a fresh inactive slot and returns its id.
func (r *registry) add() (uint64, *readerSlot) {
	id := r.ids.Add(1)
	s := newReaderSlot()
	r.slots.ProcessEntry(
		id,
		func(l *pb.EntryOf[uint64, *readerSlot]) (*pb.EntryOf[uint64, *readerSlot], *readerSlot, bool) {
			return &pb.EntryOf[uint64, *readerSlot]{Value: s}, s, l != nil
		},
	)
	r.live.Add(1)
	return id, s
}

// remove deactivates and forgets the slot registered under id.
// It reports whether the id was still registered.
func (r *registry) remove(id uint64) bool {
	_, ok := r.slots.ProcessEntry(
		id,
		func(l *pb.EntryOf[uint64, *readerSlot]) (*pb.EntryOf[uint64, *readerSlot], *readerSlot, bool) {
			if l == nil {
				return nil, nil, false
			}
			l.Value.E.Store(inactive)
			return nil, l.Value, true
		},
	)
	if ok {
		r.live.Add(-1)
	}
	return ok
}

// forEach calls fn for every registered slot.
// Slots registered while the walk runs may be skipped. Their first guard is
// taken after the walk started, hence after the selector flip that preceded
// it, so they cannot hold a stale guard.
func (r *registry) forEach(fn func(*readerSlot)) {
	r.slots.Range(func(_ uint64, s *readerSlot) bool {
		fn(s)
		return true
	})
}

// len returns the number of live slots.
func (r *registry) len() int {
	return int(r.live.Load())
}
