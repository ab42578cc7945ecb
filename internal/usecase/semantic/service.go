// Package semantic implements embedding-based place search and indexing.
package semantic

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/poisearch/internal/domain"
	"github.com/kailas-cloud/poisearch/internal/domain/geo"
	"github.com/kailas-cloud/poisearch/internal/domain/search/result"
)

// Service embeds text and queries or updates the vector collection.
// Every failure is reported as an unavailable engine so callers can degrade.
type Service struct {
	queryEmbedder domain.Embedder
	docEmbedder   domain.Embedder
	searcher      Searcher
	vectors       VectorStore
}

// New creates a semantic service. Queries and documents may use different
// embedders (e.g. distinct instruction prefixes over one model).
func New(queryEmbedder, docEmbedder domain.Embedder, searcher Searcher, vectors VectorStore) *Service {
	return &Service{
		queryEmbedder: queryEmbedder,
		docEmbedder:   docEmbedder,
		searcher:      searcher,
		vectors:       vectors,
	}
}

// Search returns the k nearest places to the query, among those inside area
// when it is non-nil. An empty query yields no candidates.
func (s *Service) Search(
	ctx context.Context, semanticQuery string, k int, area *geo.Circle,
) ([]result.Candidate, error) {
	if strings.TrimSpace(semanticQuery) == "" || k <= 0 {
		return nil, nil
	}

	emb, err := s.queryEmbedder.Embed(ctx, semanticQuery)
	if err != nil {
		return nil, domain.NewEngineUnavailable(domain.EngineEmbedder, fmt.Errorf("vectorize query: %w", err))
	}

	cands, err := s.searcher.SearchKNN(ctx, emb.Embedding, k, area)
	if err != nil {
		return nil, domain.NewEngineUnavailable(domain.EngineSemantic, err)
	}
	return cands, nil
}

// Ingest embeds text and upserts the place's vector next to its location.
// Re-ingesting the same id replaces the previous vector.
func (s *Service) Ingest(ctx context.Context, placeID string, loc geo.Point, text string) error {
	emb, err := s.docEmbedder.Embed(ctx, text)
	if err != nil {
		return domain.NewEngineUnavailable(domain.EngineEmbedder, fmt.Errorf("vectorize place: %w", err))
	}
	if err := s.vectors.Upsert(ctx, placeID, loc, emb.Embedding); err != nil {
		return domain.NewEngineUnavailable(domain.EngineSemantic, err)
	}
	return nil
}

// Stats reports the vector collection's size and last mutation time.
func (s *Service) Stats(ctx context.Context) (result.Stats, error) {
	n, err := s.vectors.Count(ctx)
	if err != nil {
		return result.Stats{}, domain.NewEngineUnavailable(domain.EngineSemantic, err)
	}
	updated, err := s.vectors.LastUpdated(ctx)
	if err != nil {
		return result.Stats{}, domain.NewEngineUnavailable(domain.EngineSemantic, err)
	}
	return result.Stats{
		TotalVectors:   n,
		CollectionName: s.vectors.Collection(),
		LastUpdated:    updated,
	}, nil
}
