//go:build leftright_cachelinesize_64

package opt

// CacheLineSize_ pinned by the leftright_cachelinesize_64 build tag.
const CacheLineSize_ = 64
