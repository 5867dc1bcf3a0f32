package leftright

import (
	"context"
	"fmt"
)

// WriteHandle is the single writer of a left-right instance.
//
// It is not safe for concurrent use. Exactly one exists per instance, so
// writers are serialized by whoever owns it; share it behind a mutex if
// several goroutines need to write.
type WriteHandle[T any] struct {
	_       noCopy
	in      *inner[T]
	factory *Factory[T]
	cfg     Config

	log oplog[T]
	// applied[i] is the log offset up to which copies[i] is current.
	applied [2]uint64

	// draining is set from a flip until the quiescence wait for it ends.
	// While set, the standby copy may still be read and is not touched.
	draining bool
	q        quiescence

	closed bool
}

// Append logs op and applies it to the standby copy right away, so the
// standby copy runs ahead of the active one by exactly the unpublished ops.
// Readers do not see op until the next Publish.
//
// If an earlier PublishContext gave up waiting for readers, op is only
// logged; it reaches the standby copy once that wait completes.
func (w *WriteHandle[T]) Append(op Op[T]) {
	w.mustBeOpen("Append")
	w.log.push(op)
	if !w.draining {
		w.catchUp()
	}
}

// Extend appends ops in order.
func (w *WriteHandle[T]) Extend(ops ...Op[T]) {
	for _, op := range ops {
		w.Append(op)
	}
}

// Publish makes every appended op visible to readers and returns the
// publish epoch.
//
// The standby copy becomes active, the epoch advances, and Publish then
// blocks until no reader holds a guard taken before the flip. Finally the
// retired copy is brought up to date by replaying the ops it missed.
// Guards taken after Publish returns see all ops appended before it; guards
// held across it keep seeing the old copy until released.
func (w *WriteHandle[T]) Publish() uint64 {
	w.mustBeOpen("Publish")
	epoch, _ := w.publish(context.Background())
	return epoch
}

// PublishWith appends op and publishes.
func (w *WriteHandle[T]) PublishWith(op Op[T]) uint64 {
	w.Append(op)
	return w.Publish()
}

// PublishContext is like Publish but gives up waiting for readers when ctx
// ends.
//
// If the wait for this publish is cut short, the returned epoch is still
// meaningful: the flip has happened and new guards already see the published
// ops. The retired copy stays untouched until the wait is finished by Drain
// or by the next Publish, Peek or Close.
//
// If a wait abandoned earlier cannot be finished before ctx ends, there is no
// flip: PublishContext returns 0 and an error matching both ErrDrainPending
// and ctx's error, and the ops appended since stay unpublished.
func (w *WriteHandle[T]) PublishContext(ctx context.Context) (uint64, error) {
	if w.closed {
		return 0, ErrClosed
	}
	return w.publish(ctx)
}

// Drain finishes a quiescence wait abandoned by PublishContext. It is a
// no-op when no wait is pending.
func (w *WriteHandle[T]) Drain(ctx context.Context) error {
	if w.closed {
		return ErrClosed
	}
	if !w.draining {
		return nil
	}
	return w.drain(ctx)
}

// Pending returns the number of appended ops readers cannot see yet.
func (w *WriteHandle[T]) Pending() int {
	return int(w.log.end() - w.applied[w.in.active.Load()])
}

// Published returns the epoch of the most recent publish.
func (w *WriteHandle[T]) Published() uint64 {
	return w.in.epoch.Current()
}

// Peek calls fn with the standby copy, which reflects every appended op,
// published or not. It first completes any pending quiescence wait, which
// may block. fn must not modify the copy or retain the pointer.
func (w *WriteHandle[T]) Peek(fn func(v *T)) {
	w.mustBeOpen("Peek")
	if w.draining {
		_ = w.drain(context.Background())
	}
	w.catchUp()
	fn(&w.in.copies[w.standby()])
}

// Factory returns the read handle factory of this instance.
func (w *WriteHandle[T]) Factory() *Factory[T] {
	return w.factory
}

// Close publishes any pending ops, waits for readers, and retires the
// handle. Readers keep reading the final value. Close is idempotent.
func (w *WriteHandle[T]) Close() {
	if w.closed {
		return
	}
	if w.Pending() > 0 {
		_, _ = w.publish(context.Background())
	} else if w.draining {
		_ = w.drain(context.Background())
	}
	w.closed = true
	w.in.closed.Store(true)
}

func (w *WriteHandle[T]) publish(ctx context.Context) (uint64, error) {
	if w.draining {
		if err := w.drain(ctx); err != nil {
			return 0, fmt.Errorf("%w: %w", ErrDrainPending, err)
		}
	}
	w.catchUp()

	s := w.standby()
	w.in.active.Store(s)
	target := w.in.epoch.Add(1)

	w.q.reset(target)
	w.draining = true
	return target, w.drain(ctx)
}

// drain runs the quiescence wait for the current target, then replays onto
// the retired copy and trims what both copies have applied.
func (w *WriteHandle[T]) drain(ctx context.Context) error {
	if err := w.q.wait(ctx, &w.in.guardTable, &w.cfg); err != nil {
		return fmt.Errorf("leftright: waiting for readers of epoch %d: %w", w.q.target, err)
	}
	w.draining = false
	w.catchUp()
	w.log.trim(min(w.applied[0], w.applied[1]))
	return nil
}

// catchUp replays the log onto the standby copy.
func (w *WriteHandle[T]) catchUp() {
	s := w.standby()
	w.log.replay(&w.in.copies[s], &w.applied[s])
}

// standby returns the index of the copy readers are not directed to.
// Only the writer stores active, so its own load is always current.
func (w *WriteHandle[T]) standby() uint32 {
	return 1 - w.in.active.Load()
}

func (w *WriteHandle[T]) mustBeOpen(op string) {
	if w.closed {
		panic("leftright: " + op + " on closed WriteHandle")
	}
}
