package vector

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// MemoryIndex is a brute-force in-memory nearest-neighbor index over the
// chunk vectors of one document session. Read-only after construction.
type MemoryIndex struct {
	dims    int
	vectors [][]float32
}

// NewMemoryIndex copies the given vectors into a new index. All vectors must
// share the same dimension and at least one vector is required.
func NewMemoryIndex(vectors [][]float32) (*MemoryIndex, error) {
	dims, err := uniformDimensions(vectors)
	if err != nil {
		return nil, err
	}

	stored := make([][]float32, len(vectors))
	for i, v := range vectors {
		stored[i] = make([]float32, dims)
		copy(stored[i], v)
	}

	return &MemoryIndex{
		dims:    dims,
		vectors: stored,
	}, nil
}

// MemoryBuilder builds MemoryIndex instances. The sessionID is unused; the
// index itself is the session-scoped resource.
type MemoryBuilder struct{}

func (MemoryBuilder) Build(ctx context.Context, sessionID string, vectors [][]float32) (Index, error) {
	return NewMemoryIndex(vectors)
}

func (idx *MemoryIndex) Search(ctx context.Context, query []float32, k int) ([]SearchHit, error) {
	if k <= 0 {
		return nil, ErrInvalidSearchLimit
	}
	if len(query) != idx.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d", ErrDimensionMismatch, len(query), idx.dims)
	}

	hits := make([]SearchHit, len(idx.vectors))
	for i, v := range idx.vectors {
		hits[i] = SearchHit{
			Position: i,
			Distance: euclidean(query, v),
		}
	}

	// ties resolve to the lower position so results are reproducible
	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].Distance < hits[b].Distance
	})

	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

func (idx *MemoryIndex) Len() int {
	return len(idx.vectors)
}

func (idx *MemoryIndex) Close() error {
	return nil
}

func euclidean(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
