// Package ranking fuses lexical, semantic and proximity signals into one ordered result list.
package ranking

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kailas-cloud/poisearch/internal/domain/geo"
	"github.com/kailas-cloud/poisearch/internal/domain/place"
	"github.com/kailas-cloud/poisearch/internal/domain/search/query"
	"github.com/kailas-cloud/poisearch/internal/domain/search/request"
	"github.com/kailas-cloud/poisearch/internal/domain/search/result"
	"github.com/kailas-cloud/poisearch/internal/domain/search/sortby"
)

// Default blend.
const (
	DefaultLexicalWeight   = 0.4
	DefaultSemanticWeight  = 0.4
	DefaultProximityWeight = 0.2
	DefaultHintBoost       = 0.05
)

// Weights are the relative contributions of each signal to the composite.
// They need not sum to 1; the blend divides by the weights actually in play.
type Weights struct {
	Lexical   float64
	Semantic  float64
	Proximity float64
}

// DefaultWeights returns the default blend.
func DefaultWeights() Weights {
	return Weights{Lexical: DefaultLexicalWeight, Semantic: DefaultSemanticWeight, Proximity: DefaultProximityWeight}
}

// Input is everything one ranking pass needs.
type Input struct {
	Lexical  []result.Candidate
	Semantic []result.Candidate
	// SemanticAvailable is false when the semantic branch failed; semantic
	// scores are then reported as null and dropped from the blend.
	SemanticAvailable bool
	// Places holds hydrated, visible places by id. Candidates without an
	// entry are dropped.
	Places  map[string]*place.Place
	Request request.Request
	Parsed  query.Parsed
}

// Ranker is stateless apart from its configuration and safe for concurrent use.
type Ranker struct {
	weights   Weights
	hintBoost float64
	scorer    *geo.Scorer
}

// New creates a ranker.
func New(w Weights, hintBoost float64, scorer *geo.Scorer) (*Ranker, error) {
	if w.Lexical < 0 || w.Semantic < 0 || w.Proximity < 0 {
		return nil, fmt.Errorf("blend weights must be non-negative: %+v", w)
	}
	if w.Lexical+w.Semantic+w.Proximity == 0 {
		return nil, fmt.Errorf("at least one blend weight must be positive")
	}
	if hintBoost < 0 || hintBoost > 1 {
		return nil, fmt.Errorf("hint boost must be in [0,1], got %v", hintBoost)
	}
	if scorer == nil {
		return nil, fmt.Errorf("proximity scorer is required")
	}
	return &Ranker{weights: w, hintBoost: hintBoost, scorer: scorer}, nil
}

type scored struct {
	loc       result.Location
	composite float64
	distance  float64
	rating    *float64
}

// Rank returns the top Request.Limit() locations and the number of
// candidates that survived filtering before truncation.
func (r *Ranker) Rank(in Input) ([]result.Location, int) {
	user := in.Request.UserLocation()
	radius := in.Request.RadiusKm()

	// Geo exclusion runs before normalization so scores span only the
	// places that can be returned.
	var nearby map[string]geo.Score
	if user != nil {
		nearby = make(map[string]geo.Score, len(in.Places))
		for id, p := range in.Places {
			if gs, ok := r.scorer.Score(*user, p.Location(), radius); ok {
				nearby[id] = gs
			}
		}
	}
	eligible := func(id string) bool {
		if _, ok := in.Places[id]; !ok {
			return false
		}
		if user == nil {
			return true
		}
		_, ok := nearby[id]
		return ok
	}

	lexical := keep(in.Lexical, eligible)
	semantic := keep(in.Semantic, eligible)

	lex := normalize(lexical)
	var sem map[string]float64
	if in.SemanticAvailable {
		sem = normalize(semantic)
	}

	ids := union(lexical, semantic)
	items := make([]scored, 0, len(ids))
	for _, id := range ids {
		p := in.Places[id]

		loc := result.NewLocation(p)
		loc.RelevanceScore = lex[id]

		num := r.weights.Lexical * loc.RelevanceScore
		den := r.weights.Lexical

		if in.SemanticAvailable {
			s := sem[id]
			loc.SemanticScore = &s
			num += r.weights.Semantic * s
			den += r.weights.Semantic
		}

		it := scored{rating: p.Rating}
		if user != nil {
			gs := nearby[id]
			d, prox := gs.DistanceKm, gs.Proximity
			loc.DistanceKm = &d
			loc.ProximityScore = &prox
			it.distance = d
			num += r.weights.Proximity * prox
			den += r.weights.Proximity
		}

		composite := 0.0
		if den > 0 {
			composite = num / den
		}
		composite += r.hintBoost * float64(matchingHints(p, &in.Parsed))
		composite = clamp01(composite)

		loc.Score = composite
		it.loc = loc
		it.composite = composite
		items = append(items, it)
	}

	sort.SliceStable(items, less(items, in.Request.SortBy()))

	total := len(items)
	limit := in.Request.Limit()
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	out := make([]result.Location, len(items))
	for i := range items {
		out[i] = items[i].loc
	}
	return out, total
}

func less(items []scored, by sortby.SortBy) func(i, j int) bool {
	return func(i, j int) bool {
		a, b := items[i], items[j]
		switch by {
		case sortby.Distance:
			if a.distance != b.distance {
				return a.distance < b.distance
			}
		case sortby.Rating:
			switch {
			case a.rating != nil && b.rating == nil:
				return true
			case a.rating == nil && b.rating != nil:
				return false
			case a.rating != nil && *a.rating != *b.rating:
				return *a.rating > *b.rating
			}
		}
		if a.composite != b.composite {
			return a.composite > b.composite
		}
		return a.loc.ID < b.loc.ID
	}
}

// matchingHints counts hints the place agrees with.
func matchingHints(p *place.Place, parsed *query.Parsed) int {
	n := 0
	if parsed.POITypeHint != "" && parsed.POITypeHint == p.POIType {
		n++
	}
	if parsed.TrailDifficultyHint != "" && parsed.TrailDifficultyHint == p.TrailDifficulty {
		n++
	}
	if parsed.LocationHint != "" && strings.EqualFold(parsed.LocationHint, strings.TrimSpace(p.City)) {
		n++
	}
	return n
}

// normalize min-max scales raw scores per place into [0,1]. When every score
// is equal the set maps to 1 if positive, else 0. Duplicate ids keep their best score.
func normalize(cands []result.Candidate) map[string]float64 {
	out := make(map[string]float64, len(cands))
	if len(cands) == 0 {
		return out
	}

	best := make(map[string]float64, len(cands))
	lo, hi := cands[0].RawScore, cands[0].RawScore
	for _, c := range cands {
		if prev, ok := best[c.PlaceID]; !ok || c.RawScore > prev {
			best[c.PlaceID] = c.RawScore
		}
		lo = min(lo, c.RawScore)
		hi = max(hi, c.RawScore)
	}

	for id, s := range best {
		switch {
		case hi == lo && hi > 0:
			out[id] = 1
		case hi == lo:
			out[id] = 0
		default:
			out[id] = (s - lo) / (hi - lo)
		}
	}
	return out
}

// keep returns the candidates whose place passes ok.
func keep(cands []result.Candidate, ok func(id string) bool) []result.Candidate {
	out := make([]result.Candidate, 0, len(cands))
	for _, c := range cands {
		if ok(c.PlaceID) {
			out = append(out, c)
		}
	}
	return out
}

// union returns candidate ids in first-seen order, lexical first.
func union(lists ...[]result.Candidate) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, l := range lists {
		for _, c := range l {
			if !seen[c.PlaceID] {
				seen[c.PlaceID] = true
				ids = append(ids, c.PlaceID)
			}
		}
	}
	return ids
}

func clamp01(v float64) float64 {
	return min(1, max(0, v))
}
