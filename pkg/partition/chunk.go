package partition

import (
	"slices"

	"github.com/matzehuels/panpart/pkg/errors"
)

// DefaultChunkSize is the largest number of organisms clustered at once.
const DefaultChunkSize = 500

// Chunk is a group of organisms clustered together.
type Chunk struct {
	Index     int
	Organisms []string
}

// Plan splits organisms into consecutive disjoint chunks of at most
// chunkSize, in the given order. The last chunk may be smaller. When all
// organisms fit, a single chunk equal to the input is returned.
func Plan(organisms []string, chunkSize int) ([]Chunk, error) {
	if chunkSize < 1 {
		return nil, errors.Configuration("chunk size must be positive, got %d", chunkSize)
	}
	chunks := make([]Chunk, 0, (len(organisms)+chunkSize-1)/chunkSize)
	for start := 0; start < len(organisms); start += chunkSize {
		end := min(start+chunkSize, len(organisms))
		chunks = append(chunks, Chunk{
			Index:     len(chunks),
			Organisms: slices.Clone(organisms[start:end]),
		})
	}
	return chunks, nil
}
