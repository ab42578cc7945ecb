// Package app wires configuration into the running services.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/kailas-cloud/poisearch/internal/config"
	dbRedis "github.com/kailas-cloud/poisearch/internal/db/redis"
	"github.com/kailas-cloud/poisearch/internal/domain"
	"github.com/kailas-cloud/poisearch/internal/domain/geo"
	"github.com/kailas-cloud/poisearch/internal/metrics"
	"github.com/kailas-cloud/poisearch/internal/repository/embcache"
	"github.com/kailas-cloud/poisearch/internal/repository/keys"
	placerepo "github.com/kailas-cloud/poisearch/internal/repository/place"
	searchrepo "github.com/kailas-cloud/poisearch/internal/repository/search"
	vectorrepo "github.com/kailas-cloud/poisearch/internal/repository/vector"
	openaiEmb "github.com/kailas-cloud/poisearch/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/poisearch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/poisearch/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/poisearch/internal/usecase/ingest"
	lexicaluc "github.com/kailas-cloud/poisearch/internal/usecase/lexical"
	"github.com/kailas-cloud/poisearch/internal/usecase/ranking"
	searchuc "github.com/kailas-cloud/poisearch/internal/usecase/search"
	semanticuc "github.com/kailas-cloud/poisearch/internal/usecase/semantic"
)

// App holds the wired services. Close releases them.
type App struct {
	Search   *searchuc.Service
	Ingest   *ingestuc.Service
	Semantic *semanticuc.Service
	Health   *healthuc.Service

	store   *dbRedis.Store
	places  *placerepo.Repo
	vectors *vectorrepo.Repo
	logger  *zap.Logger
}

// New connects to the database and builds every service.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("create database store: %w", err)
	}
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	logger.Info("Connected to database", zap.Strings("addrs", cfg.Database.Addrs))

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	layout := keys.New(cfg.Index.KeyPrefix, cfg.Index.Collection)

	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Timeout:    cfg.Embedding.Timeout(),
		Logger:     logger,
	})
	provider := guardProvider(base, cfg.Embedding, logger)
	queryEmbedder := buildEmbedder(provider, cfg.Embedding, cfg.Embedding.QueryInstruction, "query", layout, store, logger)
	docEmbedder := buildEmbedder(provider, cfg.Embedding, cfg.Embedding.DocumentInstruction, "document", layout, store, logger)
	logger.Info("Embedders created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	places := placerepo.New(store, layout, logger)
	vectors := vectorrepo.New(store, layout, cfg.Embedding.Dimensions, logger)
	candidates := searchrepo.New(store, layout)

	semantic := semanticuc.New(queryEmbedder, docEmbedder, candidates, vectors)
	lexical := lexicaluc.New(candidates, cfg.Search.LexicalTopK)

	ranker, err := newRanker(cfg.Search)
	if err != nil {
		store.Close()
		return nil, err
	}

	search := searchuc.New(lexical, semantic, places, ranker, searchuc.Config{
		CandidateK:      cfg.Search.CandidateK,
		LexicalTimeout:  cfg.Search.LexicalTimeout(),
		SemanticTimeout: cfg.Search.SemanticTimeout(),
	}, searchuc.Metrics{
		Duration: metrics.SearchDuration,
		Branch:   metrics.SearchBranchDuration,
		Degraded: metrics.SearchDegradedTotal,
	})

	ingest, err := ingestuc.New(semantic, places, ingestuc.Config{
		MaxBatchSize: cfg.Ingest.MaxBatchSize,
		Workers:      cfg.Ingest.Workers,
	}, metrics.IngestItemsTotal)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &App{
		Search:   search,
		Ingest:   ingest,
		Semantic: semantic,
		Health: healthuc.New(healthuc.Deps{
			DB:         store,
			Indexes:    store,
			IndexNames: []string{layout.PlaceIndex(), layout.VectorIndex()},
			Embedding:  base,
		}),
		store:   store,
		places:  places,
		vectors: vectors,
		logger:  logger,
	}, nil
}

// EnsureIndexes creates the place and vector indices when missing.
func (a *App) EnsureIndexes(ctx context.Context) error {
	if err := a.places.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("place index: %w", err)
	}
	if err := a.vectors.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("vector index: %w", err)
	}
	a.logger.Info("Search indices ready", zap.String("collection", a.vectors.Collection()))
	return nil
}

// Close releases the worker pool and the database connection.
func (a *App) Close() {
	a.Ingest.Release()
	a.store.Close()
}

func newRanker(cfg config.SearchConfig) (*ranking.Ranker, error) {
	scorer, err := geo.NewScorer(geo.Curve(cfg.ProximityCurve), cfg.Steepness)
	if err != nil {
		return nil, fmt.Errorf("proximity scorer: %w", err)
	}
	ranker, err := ranking.New(ranking.Weights{
		Lexical:   cfg.Weights.Lexical,
		Semantic:  cfg.Weights.Semantic,
		Proximity: cfg.Weights.Proximity,
	}, cfg.HintBoost, scorer)
	if err != nil {
		return nil, fmt.Errorf("ranker: %w", err)
	}
	return ranker, nil
}

// guardProvider puts one circuit breaker in front of the provider, shared by
// the query and document chains.
func guardProvider(base domain.Embedder, cfg config.EmbeddingConfig, logger *zap.Logger) domain.Embedder {
	if !cfg.Breaker.Enabled() {
		return base
	}
	return embeddinguc.NewBreakerEmbedder(base, embeddinguc.BreakerSettings{
		Name:             cfg.Provider + "/" + cfg.Model,
		FailureThreshold: cfg.Breaker.FailureThreshold,
		OpenTimeout:      cfg.Breaker.OpenTimeout(),
		OnStateChange: func(_, to gobreaker.State) {
			metrics.EmbeddingBreakerState.Set(float64(to))
		},
	}, logger)
}

// buildEmbedder assembles the decorator chain: OpenAI -> Breaker -> Cached -> Instrumented -> Instruction.
// The instruction is outermost so the cache key includes it.
func buildEmbedder(
	base domain.Embedder,
	cfg config.EmbeddingConfig,
	instruction, purpose string,
	layout keys.Layout,
	store *dbRedis.Store,
	logger *zap.Logger,
) domain.Embedder {
	var embedder domain.Embedder = embcache.New(base, store, embcache.Options{
		Prefix:     layout.EmbeddingCachePrefix() + cfg.Model + ":",
		TTL:        cfg.CacheTTL(),
		Dimensions: cfg.Dimensions,
		CacheTotal: metrics.EmbeddingCacheTotal,
	}, logger)
	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Provider, cfg.Model, purpose, logger)
	return domain.NewInstructionEmbedder(embedder, instruction)
}
