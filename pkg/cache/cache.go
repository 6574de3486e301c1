// Package cache provides caching of clustering results.
//
// Fitting a mixture model over a chunk is the expensive step of a partition
// run. Repeated runs over the same chunk with the same model options (a
// re-run with different output formats, a resampled subset seen twice,
// overlapping evolution runs) can reuse the stored selection instead.
//
// Three backends are provided:
//   - [NullCache]: caching disabled
//   - [FileCache]: one JSON file per entry, for the CLI
//   - [RedisCache]: shared cache for several machines
//
// Keys are built by a [Keyer] from a content hash of the clustering input
// and the options that influence the result.
package cache

import (
	"context"
	"time"
)

// Cache is a byte store with expiring entries.
type Cache interface {
	// Get returns the value stored under key and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases the backend.
	Close() error
}

// TTLChunk is how long a clustering result stays cached.
const TTLChunk = 30 * 24 * time.Hour

// ChunkKeyOpts are the options that change the outcome of clustering a chunk.
type ChunkKeyOpts struct {
	Solver         string  `json:"solver"`
	Q              int     `json:"q"`
	FormerQ        int     `json:"former_q"`
	Qmin           int     `json:"qmin"`
	Qmax           int     `json:"qmax"`
	Margin         float64 `json:"margin"`
	Beta           float64 `json:"beta"`
	MaxDegree      int     `json:"max_degree"`
	FreeDispersion bool    `json:"free_dispersion"`
	Seed           uint64  `json:"seed"`
	InitHash       string  `json:"init_hash,omitempty"`
}

// Keyer builds cache keys.
type Keyer interface {
	// ChunkKey returns the key of a clustering result for the input with
	// the given content hash.
	ChunkKey(inputHash string, opts ChunkKeyOpts) string
}

// DefaultKeyer builds keys as "chunk:<sha256 of hash and options>".
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// ChunkKey implements [Keyer].
func (DefaultKeyer) ChunkKey(inputHash string, opts ChunkKeyOpts) string {
	return hashKey("chunk", inputHash, opts)
}
