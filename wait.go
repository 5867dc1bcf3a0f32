package leftright

import (
	"context"
	"runtime"
	"time"
	_ "unsafe" // for linkname
)

// WaitStrategy selects how a publishing writer waits for readers that still
// hold guards on the copy it is about to mutate. The choice affects latency
// and CPU use only; every strategy ends exactly when all such guards are gone.
type WaitStrategy uint8

const (
	// WaitBackoff spins briefly, then sleeps in short intervals.
	// It is the default.
	WaitBackoff WaitStrategy = iota

	// WaitSpin spins, then yields the processor with runtime.Gosched.
	// Lowest publish latency, burns a core while readers linger.
	WaitSpin

	// WaitPark puts the writer to sleep until a reader releases a guard.
	// While a writer is parked, releasing readers pay for a wake-up.
	WaitPark
)

// String returns the strategy name as accepted by ParseWaitStrategy.
func (s WaitStrategy) String() string {
	switch s {
	case WaitBackoff:
		return "backoff"
	case WaitSpin:
		return "spin"
	case WaitPark:
		return "park"
	default:
		return "unknown"
	}
}

// ParseWaitStrategy maps "backoff", "spin" or "park" to a WaitStrategy.
func ParseWaitStrategy(s string) (WaitStrategy, bool) {
	switch s {
	case "", "backoff":
		return WaitBackoff, true
	case "spin":
		return WaitSpin, true
	case "park":
		return WaitPark, true
	}
	return 0, false
}

// StallEvent describes a publish that has been waiting on readers for longer
// than the threshold given to WithStallHook.
type StallEvent struct {
	// Epoch is the publish being drained.
	Epoch uint64
	// Waited is the time spent in the quiescence wait so far.
	Waited time.Duration
	// Laggards is the number of readers still holding a pre-publish guard.
	Laggards int
}

// quiescence is the writer-side polling state machine for one drain.
// It is owned by the WriteHandle and reused across publishes.
type quiescence struct {
	laggards []*readerSlot
	target   uint64
	scanned  bool
	spins    int
	started  time.Time
	nextWarn time.Time
}

func (q *quiescence) reset(target uint64) {
	clear(q.laggards)
	q.laggards = q.laggards[:0]
	q.target = target
	q.scanned = false
	q.spins = 0
	q.started = time.Time{}
	q.nextWarn = time.Time{}
}

// poll reports whether every reader is clear for q.target. The first poll
// scans the whole registry; later polls only revisit the slots that were
// not clear, since a slot once seen clear cannot go back to viewing the
// old copy.
func (q *quiescence) poll(r *registry) bool {
	if !q.scanned {
		q.scanned = true
		r.forEach(func(s *readerSlot) {
			if !s.clearFor(q.target) {
				q.laggards = append(q.laggards, s)
			}
		})
	} else {
		n := 0
		for _, s := range q.laggards {
			if !s.clearFor(q.target) {
				q.laggards[n] = s
				n++
			}
		}
		clear(q.laggards[n:])
		q.laggards = q.laggards[:n]
	}
	return len(q.laggards) == 0
}

// wait drives q until all readers are clear or ctx ends.
func (q *quiescence) wait(ctx context.Context, gt *guardTable, cfg *Config) error {
	if q.poll(&gt.readers) {
		return nil
	}
	if cfg.strategy == WaitPark {
		return q.park(ctx, gt, cfg)
	}
	done := ctx.Done()
	for {
		if done != nil {
			select {
			case <-done:
				return ctx.Err()
			default:
			}
		}
		q.checkStall(cfg)
		if cfg.strategy == WaitSpin {
			if !trySpin(&q.spins) {
				q.spins = 0
				runtime.Gosched()
			}
		} else {
			delay(&q.spins)
		}
		if q.poll(&gt.readers) {
			return nil
		}
	}
}

// park sleeps on gt.released between polls. Readers bump gt.released on
// release while gt.parked is set; ctx cancellation and stall deadlines bump
// it too so the writer wakes to notice them.
func (q *quiescence) park(ctx context.Context, gt *guardTable, cfg *Config) error {
	gt.parked.Add(1)
	defer gt.parked.Add(-1)
	if ctx.Done() != nil {
		stop := context.AfterFunc(ctx, func() { gt.released.Add(1) })
		defer stop()
	}
	for {
		gen := gt.released.Current()
		// Re-poll after publishing parked and reading gen: a release that
		// happened before this poll is seen by it, any later one bumps gen.
		if q.poll(&gt.readers) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		var timer *time.Timer
		if d := q.checkStall(cfg); d > 0 {
			timer = time.AfterFunc(d, func() { gt.released.Add(1) })
		}
		gt.released.WaitAtLeast(gen + 1)
		if timer != nil {
			timer.Stop()
		}
	}
}

// checkStall fires the stall hook when due and returns the time until the
// next check, or 0 when no hook is configured.
func (q *quiescence) checkStall(cfg *Config) time.Duration {
	if cfg.onStall == nil {
		return 0
	}
	now := time.Now()
	if q.started.IsZero() {
		q.started = now
		q.nextWarn = now.Add(cfg.stallAfter)
	}
	if !now.Before(q.nextWarn) {
		cfg.onStall(StallEvent{
			Epoch:    q.target,
			Waited:   now.Sub(q.started),
			Laggards: len(q.laggards),
		})
		q.nextWarn = now.Add(cfg.stallAfter)
	}
	return q.nextWarn.Sub(now)
}

// ============================================================================
// Spin Utilities
// ============================================================================

// noCopy may be added to structs which must not be copied
// after the first use.
//
// See https://golang.org/issues/8005#issuecomment-190753527
// for details.
//
// Note that it must not be embedded, due to the Lock and Unlock methods.
type noCopy struct{}

// Lock is a no-op used by -copylocks checker from `go vet`.
func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

func trySpin(spins *int) bool {
	if runtime_canSpin(*spins) {
		*spins++
		runtime_doSpin()
		return true
	}
	return false
}

func delay(spins *int) {
	if trySpin(spins) {
		return
	}
	*spins = 0
	// time.Sleep with non-zero duration (≈Millisecond level) works
	// effectively as backoff under high concurrency.
	// The 500µs duration is derived from Facebook/folly's implementation:
	// https://github.com/facebook/folly/blob/main/folly/synchronization/detail/Sleeper.h
	time.Sleep(500 * time.Microsecond)
}

// nolint:all
//
//go:linkname runtime_canSpin sync.runtime_canSpin
//goland:noinspection ALL
func runtime_canSpin(i int) bool

// nolint:all
//
//go:linkname runtime_doSpin sync.runtime_doSpin
//goland:noinspection ALL
func runtime_doSpin()
