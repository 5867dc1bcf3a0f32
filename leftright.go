// Package leftright implements a left-right concurrency primitive: a single
// writer and any number of readers share a value of type T, readers get
// wait-free access, and the writer never makes a reader block or retry.
//
// Two copies of T are kept. Readers always look at the active copy; the
// writer applies operations to the standby copy and publishes them by
// swapping the two. Before touching the copy that was just retired, the
// writer waits until every reader that may still be looking at it has
// released its guard, then replays the same operations onto it.
//
// Writes become visible only when published, and each published operation
// runs twice, once per copy, so operations must be deterministic.
//
// Example:
//
//	w, f := leftright.New(func() map[string]int { return map[string]int{} })
//	w.Append(leftright.OpFunc[map[string]int](func(m *map[string]int) { (*m)["a"] = 1 }))
//	w.Publish()
//
//	r := f.Handle()
//	defer r.Close()
//	g := r.Enter()
//	_ = (*g.Get())["a"] // 1
//	g.Release()
package leftright

import (
	"errors"
	"sync/atomic"
)

var (
	// ErrClosed is returned by error-returning writer methods after Close.
	ErrClosed = errors.New("leftright: write handle closed")

	// ErrDrainPending is returned by PublishContext when the reader wait
	// left over from an earlier publish could not be finished in time.
	// Nothing new was published.
	ErrDrainPending = errors.New("leftright: previous publish still draining")
)

// guardTable is the reader-presence state shared by the writer and every
// read handle of one instance.
type guardTable struct {
	// epoch counts publishes. Readers record it on Enter.
	epoch Epoch

	readers registry

	// released is bumped by readers leaving a guard while parked is
	// non-zero, to wake a writer waiting with WaitPark.
	released Epoch
	parked   atomic.Int32

	closed atomic.Bool
}

// inner is the state shared by the write handle and the read handles.
type inner[T any] struct {
	copies [2]T
	// active is the index of the copy new guards see.
	active atomic.Uint32
	guardTable
}

// New creates a left-right instance whose two copies are built by calling
// newValue twice. The copies must be independent: mutating one must not be
// visible through the other.
//
// It returns the only write handle of the instance and a factory for read
// handles.
func New[T any](
	newValue func() T,
	options ...func(*Config),
) (*WriteHandle[T], *Factory[T]) {
	in := &inner[T]{}
	in.copies[0] = newValue()
	in.copies[1] = newValue()
	return newHandles(in, options)
}

// NewFrom creates a left-right instance from an initial value. The second
// copy is made with clone, which must return a value independent of *v.
// A nil clone copies v by assignment, which is only correct when T holds no
// references (maps, slices, pointers) the copies would share.
func NewFrom[T any](
	v T,
	clone func(v *T) T,
	options ...func(*Config),
) (*WriteHandle[T], *Factory[T]) {
	in := &inner[T]{}
	if clone != nil {
		in.copies[1] = clone(&v)
	} else {
		in.copies[1] = v
	}
	in.copies[0] = v
	return newHandles(in, options)
}

func newHandles[T any](in *inner[T], options []func(*Config)) (*WriteHandle[T], *Factory[T]) {
	f := &Factory[T]{in: in}
	w := &WriteHandle[T]{
		in:      in,
		factory: f,
		cfg:     newConfig(options),
	}
	return w, f
}
