//go:build !leftright_cachelinesize_32 && !leftright_cachelinesize_64 && !leftright_cachelinesize_128 && !leftright_cachelinesize_256

package opt

import (
	"unsafe"

	"golang.org/x/sys/cpu"
)

// CacheLineSize_ is used to pad reader slots so that two readers never
// share a cache line. It's calculated using the `golang.org/x/sys` package.
// Build with -tags=leftright_cachelinesize_N to pin it instead.
const CacheLineSize_ = unsafe.Sizeof(cpu.CacheLinePad{})
