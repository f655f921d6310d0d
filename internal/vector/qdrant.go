package vector

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

// QdrantBuilder keeps session indices in a qdrant instance instead of
// process memory. Each session gets its own collection, created on build and
// dropped on Close, so nothing outlives the document session.
type QdrantBuilder struct {
	client     *qdrant.Client
	waitUpsert bool
}

func NewQdrantBuilder(host string, port int) (*QdrantBuilder, error) {
	c, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, err
	}

	b := &QdrantBuilder{
		client:     c,
		waitUpsert: true,
	}
	return b, nil
}

func NewQdrantBuilderDefault() (*QdrantBuilder, error) {
	return NewQdrantBuilder("localhost", 6334)
}

func (b *QdrantBuilder) Build(ctx context.Context, sessionID string, vectors [][]float32) (Index, error) {
	dims, err := uniformDimensions(vectors)
	if err != nil {
		return nil, err
	}

	collectionName := "session-" + sessionID

	err = b.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dims),
			Distance: qdrant.Distance_Euclid,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session collection: %w", err)
	}

	points := make([]*qdrant.PointStruct, 0, len(vectors))
	for i, v := range vectors {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(uint64(i)),
			Vectors: qdrant.NewVectors(v...),
		})
	}

	_, err = b.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collectionName,
		Wait:           &b.waitUpsert,
		Points:         points,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert session vectors: %w", err)
	}

	return &qdrantIndex{
		client:     b.client,
		collection: collectionName,
		dims:       dims,
		size:       len(vectors),
	}, nil
}

type qdrantIndex struct {
	client     *qdrant.Client
	collection string
	dims       int
	size       int
}

func (idx *qdrantIndex) Search(ctx context.Context, query []float32, k int) ([]SearchHit, error) {
	if k <= 0 {
		return nil, ErrInvalidSearchLimit
	}
	if len(query) != idx.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d", ErrDimensionMismatch, len(query), idx.dims)
	}

	limit := uint64(min(k, idx.size))
	res, err := idx.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: idx.collection,
		Query:          qdrant.NewQuery(query...),
		Limit:          &limit,
	})
	if err != nil {
		return nil, err
	}

	hits := make([]SearchHit, 0, len(res))
	for _, sp := range res {
		hits = append(hits, SearchHit{
			Position: int(sp.Id.GetNum()),
			Distance: float64(sp.Score),
		})
	}
	return hits, nil
}

func (idx *qdrantIndex) Len() int {
	return idx.size
}

func (idx *qdrantIndex) Close() error {
	return idx.client.DeleteCollection(context.Background(), idx.collection)
}
