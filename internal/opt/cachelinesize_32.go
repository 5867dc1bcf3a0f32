//go:build leftright_cachelinesize_32

package opt

// CacheLineSize_ pinned by the leftright_cachelinesize_32 build tag.
const CacheLineSize_ = 32
