// Package lexical implements weighted keyword search over place records.
package lexical

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/kailas-cloud/poisearch/internal/domain"
	"github.com/kailas-cloud/poisearch/internal/domain/geo"
	"github.com/kailas-cloud/poisearch/internal/domain/place"
	"github.com/kailas-cloud/poisearch/internal/domain/search/filter"
	"github.com/kailas-cloud/poisearch/internal/domain/search/query"
	"github.com/kailas-cloud/poisearch/internal/domain/search/result"
)

// maxTerms caps the OR-ed term list sent to the index.
const maxTerms = 24

// stopwords never help ranking; dropping them keeps the OR query short.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "at": true, "by": true,
	"for": true, "from": true, "i": true, "in": true, "is": true, "it": true,
	"me": true, "my": true, "near": true, "of": true, "on": true, "or": true,
	"some": true, "that": true, "the": true, "to": true, "where": true,
	"with": true, "within": true, "best": true, "good": true, "find": true,
}

// Service answers lexical candidate queries.
type Service struct {
	repo Repository
	topK int
}

// New creates a lexical search service returning at most topK candidates.
func New(repo Repository, topK int) *Service {
	return &Service{repo: repo, topK: topK}
}

// Search returns lexical candidates for the query. Extracted filters, the
// category filter, the scope's visibility rule and the search area (when
// non-nil) are hard predicates. Any backend failure is reported as an
// unavailable lexical engine.
func (s *Service) Search(
	ctx context.Context, semanticQuery string, filters []query.Filter, category string, scope place.Scope,
	area *geo.Circle,
) ([]result.Candidate, error) {
	expr, err := Predicates(filters, category, scope)
	if err != nil {
		return nil, err
	}

	cands, err := s.repo.SearchText(ctx, Terms(semanticQuery), expr, area, s.topK)
	if err != nil {
		return nil, domain.NewEngineUnavailable(domain.EngineLexical, err)
	}
	return cands, nil
}

// Predicates builds the conjunction of hard filters for a search.
func Predicates(filters []query.Filter, category string, scope place.Scope) (filter.Expression, error) {
	conds := make([]filter.Condition, 0, len(filters)+2)
	for _, f := range filters {
		c, err := filter.NewMatch(f.Field, f.Value)
		if err != nil {
			return filter.Expression{}, fmt.Errorf("%w: %w", domain.ErrValidation, err)
		}
		conds = append(conds, c)
	}
	if category = strings.TrimSpace(category); category != "" {
		c, _ := filter.NewMatch("category", category)
		conds = append(conds, c)
	}
	if scope != place.ScopePrivileged {
		c, _ := filter.NewMatch("status", string(place.StatusPublished))
		conds = append(conds, c)
	}

	expr, err := filter.And(conds...)
	if err != nil {
		return filter.Expression{}, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	return expr, nil
}

// Terms splits text into lower-cased search terms, dropping stopwords and
// duplicates. Word order is kept.
func Terms(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})

	seen := make(map[string]bool, len(words))
	terms := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.Trim(w, "'")
		if len(w) < 2 || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		terms = append(terms, w)
		if len(terms) == maxTerms {
			break
		}
	}
	return terms
}
