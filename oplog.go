package leftright

// Op is a replayable mutation of a T.
//
// Every Op is applied twice, once to each copy, in the order it was
// appended. Apply must be deterministic: given two equal values it must
// leave them equal. It must not depend on time, randomness or other
// external state, and must not retain the *T it is given.
type Op[T any] interface {
	Apply(target *T)
}

// OpFunc adapts a function to the Op interface.
type OpFunc[T any] func(target *T)

// Apply calls f(target).
func (f OpFunc[T]) Apply(target *T) {
	f(target)
}

// oplog is the writer's ordered log of operations, addressed by absolute
// offset. Offset base is the first entry still held; entries below the
// slower copy's applied offset are dropped by trim.
type oplog[T any] struct {
	ops  []Op[T]
	base uint64
}

// end returns the offset one past the last appended op.
func (l *oplog[T]) end() uint64 {
	return l.base + uint64(len(l.ops))
}

func (l *oplog[T]) push(op Op[T]) {
	l.ops = append(l.ops, op)
}

func (l *oplog[T]) at(off uint64) Op[T] {
	return l.ops[off-l.base]
}

// trim drops every entry below upTo.
func (l *oplog[T]) trim(upTo uint64) {
	if upTo <= l.base {
		return
	}
	n := int(upTo - l.base)
	if n >= len(l.ops) {
		clear(l.ops)
		l.ops = l.ops[:0]
	} else {
		rest := copy(l.ops, l.ops[n:])
		clear(l.ops[rest:])
		l.ops = l.ops[:rest]
	}
	l.base = upTo
}

// replay applies to target, in order, every op from *applied to the end of
// the log. *applied advances after each op returns, so if an op panics the
// offset still names it and a later replay resumes there.
func (l *oplog[T]) replay(target *T, applied *uint64) {
	for end := l.end(); *applied < end; {
		l.at(*applied).Apply(target)
		*applied++
	}
}
