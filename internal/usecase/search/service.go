// Package search orchestrates one place search: validate, parse, fan out to
// the lexical and semantic engines, hydrate, and rank.
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/poisearch/internal/domain"
	"github.com/kailas-cloud/poisearch/internal/domain/place"
	"github.com/kailas-cloud/poisearch/internal/domain/search/query"
	"github.com/kailas-cloud/poisearch/internal/domain/search/request"
	"github.com/kailas-cloud/poisearch/internal/domain/search/result"
	"github.com/kailas-cloud/poisearch/internal/logger"
	"github.com/kailas-cloud/poisearch/internal/usecase/lexical"
	"github.com/kailas-cloud/poisearch/internal/usecase/ranking"
)

// Defaults for Config zero values.
const (
	DefaultCandidateK      = 100
	DefaultLexicalTimeout  = 2 * time.Second
	DefaultSemanticTimeout = 1500 * time.Millisecond
)

// Config bounds the fan-out.
type Config struct {
	// CandidateK is how many candidates the semantic branch retrieves.
	CandidateK      int
	LexicalTimeout  time.Duration
	SemanticTimeout time.Duration
}

// Metrics are optional collectors; nil fields are skipped.
type Metrics struct {
	Duration *prometheus.HistogramVec // labels: sort_by, outcome
	Branch   *prometheus.HistogramVec // labels: engine
	Degraded *prometheus.CounterVec   // labels: reason
}

// Service runs hybrid searches. Safe for concurrent use.
type Service struct {
	lexical  LexicalEngine
	semantic SemanticEngine
	places   PlaceReader
	ranker   Ranker
	cfg      Config
	metrics  Metrics
}

// New creates a search service.
func New(
	lex LexicalEngine, sem SemanticEngine, places PlaceReader, ranker Ranker, cfg Config, m Metrics,
) *Service {
	if cfg.CandidateK <= 0 {
		cfg.CandidateK = DefaultCandidateK
	}
	if cfg.LexicalTimeout <= 0 {
		cfg.LexicalTimeout = DefaultLexicalTimeout
	}
	if cfg.SemanticTimeout <= 0 {
		cfg.SemanticTimeout = DefaultSemanticTimeout
	}
	return &Service{lexical: lex, semantic: sem, places: places, ranker: ranker, cfg: cfg, metrics: m}
}

type branches struct {
	lexical  []result.Candidate
	semantic []result.Candidate
	semErr   error
}

// Search answers a search request. A semantic failure degrades the response
// and is reported in query_interpretation.error; a lexical failure fails the call.
func (s *Service) Search(ctx context.Context, params request.Params, scope place.Scope) (result.Response, error) {
	start := time.Now()

	req, err := request.New(params, scope)
	if err != nil {
		return result.Response{}, err
	}
	parsed := query.Parse(req.Query())

	resp, err := s.search(ctx, &req, parsed)

	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case resp.Degraded():
		outcome = "degraded"
	}
	elapsed := time.Since(start)
	if s.metrics.Duration != nil {
		s.metrics.Duration.WithLabelValues(string(req.SortBy()), outcome).Observe(elapsed.Seconds())
	}
	if err != nil {
		return result.Response{}, err
	}

	resp.SearchTimeMs = float64(elapsed.Microseconds()) / 1000
	return resp, nil
}

func (s *Service) search(ctx context.Context, req *request.Request, parsed query.Parsed) (result.Response, error) {
	log := logger.FromContext(ctx)

	br, err := s.fanOut(ctx, req, parsed)
	if err != nil {
		return result.Response{}, err
	}

	semanticAvailable := br.semErr == nil
	if !semanticAvailable {
		reason := degradeReason(br.semErr)
		parsed.Error = "semantic search unavailable: " + reason
		if s.metrics.Degraded != nil {
			s.metrics.Degraded.WithLabelValues(reason).Inc()
		}
		log.Warn("Semantic branch failed, serving lexical and geo ranking", zap.Error(br.semErr))
	}

	places, err := s.hydrate(ctx, req, parsed, br)
	if err != nil {
		return result.Response{}, err
	}

	locs, total := s.ranker.Rank(ranking.Input{
		Lexical:           br.lexical,
		Semantic:          br.semantic,
		SemanticAvailable: semanticAvailable,
		Places:            places,
		Request:           *req,
		Parsed:            parsed,
	})
	if locs == nil {
		locs = []result.Location{}
	}

	log.Debug("Search ranked",
		zap.Int("lexical_candidates", len(br.lexical)),
		zap.Int("semantic_candidates", len(br.semantic)),
		zap.Int("hydrated", len(places)),
		zap.Int("total", total),
	)

	return result.Response{
		Results:             locs,
		TotalResults:        total,
		QueryInterpretation: parsed,
	}, nil
}

// fanOut runs both engines concurrently, each under its own timeout. Only the
// lexical branch may fail the group; the semantic error is kept aside. Both
// engines retrieve inside the search area so far-away hits cannot crowd out
// nearby ones; the ranker still applies the exact distance check.
func (s *Service) fanOut(ctx context.Context, req *request.Request, parsed query.Parsed) (branches, error) {
	var br branches
	area := req.Area()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		bctx, cancel := context.WithTimeout(gctx, s.cfg.LexicalTimeout)
		defer cancel()
		defer s.observeBranch(result.EngineLexical, time.Now())

		cands, err := s.lexical.Search(bctx, parsed.SemanticQuery, parsed.ExtractedFilters, req.CategoryFilter(), req.Scope(), area)
		if err != nil {
			return domain.NewEngineUnavailable(domain.EngineLexical, err)
		}
		br.lexical = cands
		return nil
	})

	g.Go(func() error {
		bctx, cancel := context.WithTimeout(gctx, s.cfg.SemanticTimeout)
		defer cancel()
		defer s.observeBranch(result.EngineSemantic, time.Now())

		cands, err := s.semantic.Search(bctx, parsed.SemanticQuery, s.cfg.CandidateK, area)
		if err != nil {
			br.semErr = domain.NewEngineUnavailable(domain.EngineSemantic, err)
			return nil
		}
		br.semantic = cands
		return nil
	})

	if err := g.Wait(); err != nil {
		return branches{}, err
	}
	return br, nil
}

// hydrate loads visible places for every candidate and drops those that fail
// the query's hard predicates. Lexical hits already satisfy them; semantic-only
// hits are checked here.
func (s *Service) hydrate(
	ctx context.Context, req *request.Request, parsed query.Parsed, br branches,
) (map[string]*place.Place, error) {
	ids := candidateIDs(br.lexical, br.semantic)
	places, err := s.places.FetchVisible(ctx, ids, req.Scope())
	if err != nil {
		return nil, domain.NewEngineUnavailable(domain.EngineLexical, fmt.Errorf("hydrate: %w", err))
	}

	preds, err := lexical.Predicates(parsed.ExtractedFilters, req.CategoryFilter(), req.Scope())
	if err != nil {
		return nil, err
	}
	for id, p := range places {
		if !preds.Matches(p.FieldValues) {
			delete(places, id)
		}
	}
	return places, nil
}

func (s *Service) observeBranch(engine result.Engine, start time.Time) {
	if s.metrics.Branch != nil {
		s.metrics.Branch.WithLabelValues(string(engine)).Observe(time.Since(start).Seconds())
	}
}

// degradeReason is a short, stable label for a semantic failure.
func degradeReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrTimeout):
		return "timeout"
	case domain.IsEngineUnavailable(err, domain.EngineEmbedder):
		return "embedder"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "index"
	}
}

func candidateIDs(lists ...[]result.Candidate) []string {
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
