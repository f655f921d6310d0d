// Copyright 2025 Alan Matykiewicz
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to use,
// copy, modify, merge, publish, distribute, sublicense, and/or sell copies of the
// Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES
// OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
// NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT
// HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY,
// WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
// OTHER DEALINGS IN THE SOFTWARE.

package vector

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrInvalidIndexType   = errors.New("no vector index found for given type")
	ErrDimensionMismatch  = errors.New("vector dimension mismatch")
	ErrInvalidSearchLimit = errors.New("search limit must be positive")
	ErrEmptyIndex         = errors.New("index contains no vectors")
)

const (
	IndexTypeMemory IndexType = iota
	IndexTypeQdrant
)

var indexTypeMap = map[string]IndexType{
	"memory": IndexTypeMemory,
	"qdrant": IndexTypeQdrant,
}

type IndexType int

func ParseIndexType(name string) (IndexType, error) {
	t, ok := indexTypeMap[name]
	if !ok {
		return 0, ErrInvalidIndexType
	}
	return t, nil
}

// SearchHit identifies one indexed vector matched by a nearest-neighbor
// query. Position is the insertion position of the vector, which equals the
// chunk index it was built from.
type SearchHit struct {
	Position int
	Distance float64
}

// Index holds the embedded chunks of a single document session. It is built
// once, searched many times and never mutated; Close releases whatever the
// backend allocated for the session.
type Index interface {
	// Search returns up to k hits ordered by ascending Euclidean distance
	// to the query vector. k larger than the index size is clamped; a
	// query of the wrong dimension is an error.
	Search(ctx context.Context, query []float32, k int) ([]SearchHit, error)

	// Len reports the number of indexed vectors.
	Len() int

	Close() error
}

// Builder constructs a session Index from the full set of chunk vectors.
type Builder interface {
	Build(ctx context.Context, sessionID string, vectors [][]float32) (Index, error)
}

func uniformDimensions(vectors [][]float32) (int, error) {
	if len(vectors) == 0 {
		return 0, ErrEmptyIndex
	}

	dims := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dims {
			return 0, fmt.Errorf("%w: vector %d has %d dimensions, expected %d", ErrDimensionMismatch, i, len(v), dims)
		}
	}
	return dims, nil
}
