package lexical

import (
	"context"

	"github.com/kailas-cloud/poisearch/internal/domain/geo"
	"github.com/kailas-cloud/poisearch/internal/domain/search/filter"
	"github.com/kailas-cloud/poisearch/internal/domain/search/result"
)

// Repository runs weighted full-text search over the place index. A non-nil
// area is applied by the index before topK.
type Repository interface {
	SearchText(
		ctx context.Context, terms []string, filters filter.Expression, area *geo.Circle, topK int,
	) ([]result.Candidate, error)
}
