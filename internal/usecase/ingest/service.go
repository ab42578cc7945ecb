// Package ingest loads place records into both search indices.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/poisearch/internal/domain"
	dombatch "github.com/kailas-cloud/poisearch/internal/domain/batch"
	"github.com/kailas-cloud/poisearch/internal/domain/place"
	"github.com/kailas-cloud/poisearch/internal/logger"
)

// Defaults for Config zero values.
const (
	DefaultMaxBatchSize = 500
	DefaultWorkers      = 4
)

// Config bounds a bulk request.
type Config struct {
	MaxBatchSize int
	Workers      int
}

// Request is a bulk load of place payloads.
type Request struct {
	Places []place.Place `json:"places"`
}

// Response summarizes a bulk load. Errors are "<id>: <reason>" in input order.
type Response struct {
	BatchID          string   `json:"batch_id"`
	SuccessCount     int      `json:"success_count"`
	ErrorCount       int      `json:"error_count"`
	Errors           []string `json:"errors"`
	ProcessingTimeMs float64  `json:"processing_time_ms"`
}

// Service runs bulk ingestion on a bounded worker pool.
type Service struct {
	vectors VectorIndexer
	places  PlaceWriter
	pool    *ants.Pool
	cfg     Config
	items   *prometheus.CounterVec // labels: status
	newID   func() string
}

// New creates an ingestion service. Call Release when done.
func New(vectors VectorIndexer, places PlaceWriter, cfg Config, items *prometheus.CounterVec) (*Service, error) {
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = DefaultMaxBatchSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	pool, err := ants.NewPool(cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("ingest pool: %w", err)
	}
	return &Service{
		vectors: vectors,
		places:  places,
		pool:    pool,
		cfg:     cfg,
		items:   items,
		newID:   uuid.NewString,
	}, nil
}

// Release stops the worker pool.
func (s *Service) Release() { s.pool.Release() }

// MaxBatchSize returns the configured per-request limit.
func (s *Service) MaxBatchSize() int { return s.cfg.MaxBatchSize }

// halt records the first cascading failure. Items that have not reached the
// embedder yet fail with it instead of calling out again.
type halt struct {
	stopped atomic.Bool
	once    sync.Once
	cause   error
}

func (h *halt) trip(err error) {
	h.once.Do(func() {
		h.cause = err
		h.stopped.Store(true)
	})
}

func (h *halt) err() error {
	if !h.stopped.Load() {
		return nil
	}
	return h.cause
}

// BulkIngest validates, embeds and stores every record. Record failures are
// reported in the response. When the embedder becomes unavailable the rest
// of the batch is failed and the partial response is returned with the error.
// Records sharing an id are applied in input order, so the last one wins.
func (s *Service) BulkIngest(ctx context.Context, req Request) (Response, error) {
	start := time.Now()
	resp := Response{BatchID: s.newID(), Errors: []string{}}

	if len(req.Places) > s.cfg.MaxBatchSize {
		return resp, fmt.Errorf("%w: %d records, max %d", domain.ErrBatchTooLarge, len(req.Places), s.cfg.MaxBatchSize)
	}
	log := logger.FromContext(ctx).With(zap.String("batch_id", resp.BatchID))

	results := make([]dombatch.Result, len(req.Places))
	var (
		wg sync.WaitGroup
		h  halt
	)
	for _, idx := range groupByID(req.Places) {
		wg.Add(1)
		if err := s.pool.Submit(func() {
			defer wg.Done()
			for _, i := range idx {
				results[i] = s.ingestOne(ctx, i, &req.Places[i], &h)
			}
		}); err != nil {
			wg.Done()
			for _, i := range idx {
				results[i] = dombatch.NewError(i, req.Places[i].ID, fmt.Errorf("schedule: %w", err))
			}
		}
	}
	wg.Wait()

	sum := dombatch.Summarize(results)
	resp.SuccessCount = sum.SuccessCount
	resp.ErrorCount = sum.ErrorCount
	resp.Errors = sum.Errors
	resp.ProcessingTimeMs = float64(time.Since(start).Microseconds()) / 1000

	s.count(dombatch.StatusOK, sum.SuccessCount)
	s.count(dombatch.StatusError, sum.ErrorCount)

	if err := h.err(); err != nil {
		log.Error("Bulk ingest halted", zap.Error(err),
			zap.Int("success_count", resp.SuccessCount), zap.Int("error_count", resp.ErrorCount))
		return resp, err
	}
	log.Info("Bulk ingest finished",
		zap.Int("success_count", resp.SuccessCount),
		zap.Int("error_count", resp.ErrorCount),
		zap.Float64("processing_time_ms", resp.ProcessingTimeMs),
	)
	return resp, nil
}

func (s *Service) ingestOne(ctx context.Context, i int, p *place.Place, h *halt) dombatch.Result {
	if err := p.Validate(); err != nil {
		return dombatch.NewError(i, p.ID, err)
	}
	if err := h.err(); err != nil {
		return dombatch.NewError(i, p.ID, err)
	}
	if err := ctx.Err(); err != nil {
		return dombatch.NewError(i, p.ID, err)
	}

	if err := s.vectors.Ingest(ctx, p.ID, p.Location(), p.EmbeddingText()); err != nil {
		if cascades(err) {
			h.trip(err)
		}
		return dombatch.NewError(i, p.ID, err)
	}
	if err := s.places.Upsert(ctx, p); err != nil {
		return dombatch.NewError(i, p.ID, fmt.Errorf("store place: %w", err))
	}
	return dombatch.NewOK(i, p.ID)
}

// groupByID partitions record indexes by place id, keeping input order
// within each group. Records without an id fail validation and stay alone.
func groupByID(places []place.Place) [][]int {
	groups := make([][]int, 0, len(places))
	pos := make(map[string]int, len(places))
	for i := range places {
		id := places[i].ID
		if id == "" {
			groups = append(groups, []int{i})
			continue
		}
		if g, ok := pos[id]; ok {
			groups[g] = append(groups[g], i)
			continue
		}
		pos[id] = len(groups)
		groups = append(groups, []int{i})
	}
	return groups
}

// cascades reports whether err means no further record can be embedded.
// A provider rejecting one input does not stop the batch.
func cascades(err error) bool {
	if errors.Is(err, domain.ErrValidation) {
		return false
	}
	return domain.IsEngineUnavailable(err, domain.EngineEmbedder) || errors.Is(err, domain.ErrRateLimited)
}

func (s *Service) count(status dombatch.ItemStatus, n int) {
	if s.items != nil && n > 0 {
		s.items.WithLabelValues(string(status)).Add(float64(n))
	}
}
