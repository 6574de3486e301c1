package cache

// ScopedKeyer wraps a Keyer with a prefix. Results of different solvers
// or solver versions must never be served for one another, so each solver
// gets its own namespace:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "em/v1:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// ChunkKey generates a prefixed key for a clustering result.
func (k *ScopedKeyer) ChunkKey(inputHash string, opts ChunkKeyOpts) string {
	return k.prefix + k.inner.ChunkKey(inputHash, opts)
}
