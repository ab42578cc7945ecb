package semantic

import (
	"context"
	"time"

	"github.com/kailas-cloud/poisearch/internal/domain/geo"
	"github.com/kailas-cloud/poisearch/internal/domain/search/result"
)

// Searcher runs nearest-neighbour search over the vector collection,
// restricted to area when it is non-nil.
type Searcher interface {
	SearchKNN(ctx context.Context, vector []float32, k int, area *geo.Circle) ([]result.Candidate, error)
}

// VectorStore persists embeddings and reports collection state.
type VectorStore interface {
	Collection() string
	Upsert(ctx context.Context, placeID string, loc geo.Point, vec []float32) error
	Count(ctx context.Context) (int64, error)
	LastUpdated(ctx context.Context) (*time.Time, error)
}
