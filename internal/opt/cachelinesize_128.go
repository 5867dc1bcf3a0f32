//go:build leftright_cachelinesize_128

package opt

// CacheLineSize_ pinned by the leftright_cachelinesize_128 build tag.
const CacheLineSize_ = 128
