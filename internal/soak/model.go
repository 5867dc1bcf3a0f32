package soak

import (
	"fmt"
	"math/rand/v2"

	"github.com/llxisdsh/leftright"
)

// Table is the value shared through the left-right instance. Sum always
// equals the sum of Rows and Version counts applied ops, so a reader can
// detect a torn or half-applied state from inside a single guard.
type Table struct {
	Rows    map[uint32]uint64
	Sum     uint64
	Version uint64
}

// NewTable returns an empty table.
func NewTable() Table {
	return Table{Rows: make(map[uint32]uint64)}
}

// Check verifies the table's internal invariants.
func (t *Table) Check() error {
	var sum uint64
	for _, v := range t.Rows {
		sum += v
	}
	if sum != t.Sum {
		return fmt.Errorf("version %d: rows sum to %d, checksum says %d", t.Version, sum, t.Sum)
	}
	return nil
}

// Equal reports whether t and o hold the same rows at the same version.
func (t *Table) Equal(o *Table) bool {
	if t.Version != o.Version || t.Sum != o.Sum || len(t.Rows) != len(o.Rows) {
		return false
	}
	for k, v := range t.Rows {
		if ov, ok := o.Rows[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

type setOp struct {
	key uint32
	val uint64
}

func (o setOp) Apply(t *Table) {
	t.Sum = t.Sum - t.Rows[o.key] + o.val
	t.Rows[o.key] = o.val
	t.Version++
}

type deleteOp struct {
	key uint32
}

func (o deleteOp) Apply(t *Table) {
	t.Sum -= t.Rows[o.key]
	delete(t.Rows, o.key)
	t.Version++
}

// OpStream generates a deterministic sequence of table ops from a seed.
type OpStream struct {
	rng  *rand.Rand
	keys uint32
}

// NewOpStream returns a stream over keys distinct keys.
func NewOpStream(seed uint64, keys int) *OpStream {
	return &OpStream{
		rng:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		keys: uint32(keys),
	}
}

// Next returns the next op: three sets for every delete on average.
func (s *OpStream) Next() leftright.Op[Table] {
	key := s.rng.Uint32N(s.keys)
	if s.rng.IntN(4) == 0 {
		return deleteOp{key: key}
	}
	return setOp{key: key, val: s.rng.Uint64N(1 << 32)}
}
