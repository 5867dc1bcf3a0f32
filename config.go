package leftright

import (
	"time"
)

// ============================================================================
// Configuration
// ============================================================================

// Config defines the options of a left-right instance.
// It is populated by the With* functions passed to New or NewFrom.
type Config struct {
	// strategy selects how a publish waits for readers that still hold
	// guards on the previously active copy. Defaults to WaitBackoff.
	strategy WaitStrategy

	// stallAfter is the quiescence wait duration after which onStall is
	// called, and the interval between repeated calls while the wait
	// continues.
	stallAfter time.Duration

	// onStall, if non-nil, is called on the writer's goroutine while a
	// publish is stuck behind readers. It must not take guards or publish.
	onStall func(StallEvent)
}

// WithWaitStrategy configures how publishes wait for reader quiescence.
//
// Usage:
//
//	w, f := leftright.New(newIndex, leftright.WithWaitStrategy(leftright.WaitPark))
func WithWaitStrategy(s WaitStrategy) func(*Config) {
	return func(c *Config) {
		c.strategy = s
	}
}

// WithStallHook registers fn to be called when a publish has waited longer
// than after for readers to release their guards, and again every after
// while it keeps waiting. A reader that never releases its guard stalls the
// writer forever; the hook is how that becomes visible.
//
// A non-positive after or a nil fn disables the hook.
func WithStallHook(after time.Duration, fn func(StallEvent)) func(*Config) {
	return func(c *Config) {
		if after <= 0 || fn == nil {
			c.stallAfter, c.onStall = 0, nil
			return
		}
		c.stallAfter, c.onStall = after, fn
	}
}

func newConfig(options []func(*Config)) Config {
	var c Config
	for _, o := range options {
		if o != nil {
			o(&c)
		}
	}
	return c
}
