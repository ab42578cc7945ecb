package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/poisearch/internal/db"
	"github.com/kailas-cloud/poisearch/internal/domain/geo"
	"github.com/kailas-cloud/poisearch/internal/domain/search/filter"
	"github.com/kailas-cloud/poisearch/internal/domain/search/result"
	"github.com/kailas-cloud/poisearch/internal/repository/keys"
)

// Scorer used for lexical ranking.
const textScorer = "BM25STD"

const placeIDField = "place_id"

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
}

// Repo runs candidate retrieval against the lexical and vector indexes.
type Repo struct {
	store  store
	layout keys.Layout
}

// New creates a search repository.
func New(s store, layout keys.Layout) *Repo {
	return &Repo{store: s, layout: layout}
}

// SearchText returns up to topK lexical candidates. Terms are OR-ed, filters
// are hard predicates on indexed tags. A non-nil area limits hits to places
// inside it before topK is applied.
func (r *Repo) SearchText(
	ctx context.Context, terms []string, filters filter.Expression, area *geo.Circle, topK int,
) ([]result.Candidate, error) {
	mapped, err := mapFilters(filters)
	if err != nil {
		return nil, err
	}

	q := &db.TextQuery{
		IndexName:    r.layout.PlaceIndex(),
		Terms:        terms,
		Filters:      mapped,
		Geo:          geoFilter(area),
		TopK:         topK,
		ReturnFields: []string{"id"},
		Scorer:       textScorer,
	}

	sr, err := r.store.SearchText(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search text: %w", err)
	}
	return toCandidates(sr, r.layout.PlacePrefix(), result.EngineLexical, nil), nil
}

// SearchKNN returns the k nearest places to vector, among those inside area
// when it is non-nil. RawScore is cosine similarity.
func (r *Repo) SearchKNN(
	ctx context.Context, vector []float32, k int, area *geo.Circle,
) ([]result.Candidate, error) {
	q := &db.KNNQuery{
		IndexName:    r.layout.VectorIndex(),
		Vector:       vector,
		K:            k,
		Geo:          geoFilter(area),
		ReturnFields: []string{placeIDField},
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search knn %s: %w", r.layout.Collection(), err)
	}
	return toCandidates(sr, r.layout.VectorPrefix(), result.EngineSemantic, func(e db.SearchEntry) string {
		return e.Fields[placeIDField]
	}), nil
}

func geoFilter(area *geo.Circle) *db.GeoFilter {
	if area == nil {
		return nil
	}
	return &db.GeoFilter{
		Field:    keys.FieldLocation,
		Lng:      area.Center.Lng,
		Lat:      area.Center.Lat,
		RadiusKm: area.RadiusKm,
	}
}

// toCandidates converts hits to candidates. idOf may read the place id from
// a field; otherwise the key minus prefix is used.
func toCandidates(
	sr *db.SearchResult, prefix string, engine result.Engine, idOf func(db.SearchEntry) string,
) []result.Candidate {
	if sr == nil || len(sr.Entries) == 0 {
		return nil
	}

	out := make([]result.Candidate, 0, len(sr.Entries))
	seen := make(map[string]bool, len(sr.Entries))
	for _, e := range sr.Entries {
		var id string
		if idOf != nil {
			id = idOf(e)
		}
		if id == "" {
			id = strings.TrimPrefix(e.Key, prefix)
		}
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, result.Candidate{PlaceID: id, RawScore: e.Score, Engine: engine})
	}
	return out
}

// mapFilters rewrites filter fields to their indexed hash field names.
func mapFilters(expr filter.Expression) (filter.Expression, error) {
	if expr.IsEmpty() {
		return expr, nil
	}
	conds := make([]filter.Condition, 0, len(expr.Must()))
	for _, c := range expr.Must() {
		mc, err := filter.NewMatch(keys.TagField(c.Field()), c.Value())
		if err != nil {
			return filter.Expression{}, fmt.Errorf("map filter %s: %w", c, err)
		}
		conds = append(conds, mc)
	}
	return filter.And(conds...)
}
