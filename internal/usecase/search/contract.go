package search

import (
	"context"

	"github.com/kailas-cloud/poisearch/internal/domain/geo"
	"github.com/kailas-cloud/poisearch/internal/domain/place"
	"github.com/kailas-cloud/poisearch/internal/domain/search/query"
	"github.com/kailas-cloud/poisearch/internal/domain/search/result"
	"github.com/kailas-cloud/poisearch/internal/usecase/ranking"
)

// LexicalEngine returns keyword candidates under hard predicates. A non-nil
// area is one of them, applied before the engine's top-k cut.
type LexicalEngine interface {
	Search(
		ctx context.Context, semanticQuery string, filters []query.Filter, category string, scope place.Scope,
		area *geo.Circle,
	) ([]result.Candidate, error)
}

// SemanticEngine returns nearest-neighbour candidates for the query text,
// drawn only from inside area when it is non-nil.
type SemanticEngine interface {
	Search(ctx context.Context, semanticQuery string, k int, area *geo.Circle) ([]result.Candidate, error)
}

// PlaceReader hydrates candidates into visible places.
type PlaceReader interface {
	FetchVisible(ctx context.Context, ids []string, scope place.Scope) (map[string]*place.Place, error)
}

// Ranker orders hydrated candidates.
type Ranker interface {
	Rank(in ranking.Input) ([]result.Location, int)
}
