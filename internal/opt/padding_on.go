//go:build !leftright_disable_padding

package opt

import (
	"sync/atomic"
	"unsafe"
)

// Slot_ is a reader epoch cell. Every reader stores into its own slot on
// each read, so slots are padded to a full cache line; otherwise small
// allocations from the same span would put several readers on one line.
type Slot_ struct {
	E atomic.Uint64
	_ [(CacheLineSize_ - unsafe.Sizeof(atomic.Uint64{})%CacheLineSize_) % CacheLineSize_]byte
}

const Padded_ = true
