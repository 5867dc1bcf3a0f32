//go:build leftright_cachelinesize_256

package opt

// CacheLineSize_ pinned by the leftright_cachelinesize_256 build tag.
const CacheLineSize_ = 256
