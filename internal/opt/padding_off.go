//go:build leftright_disable_padding

package opt

import "sync/atomic"

// Slot_ is a reader epoch cell.
// Padding is force-disabled via the leftright_disable_padding build tag.
// Use: go build -tags=leftright_disable_padding
type Slot_ struct {
	E atomic.Uint64
}

const Padded_ = false
