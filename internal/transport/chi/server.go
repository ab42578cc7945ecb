package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/poisearch/internal/domain"
	"github.com/kailas-cloud/poisearch/internal/domain/place"
	"github.com/kailas-cloud/poisearch/internal/domain/search/query"
	"github.com/kailas-cloud/poisearch/internal/domain/search/request"
	"github.com/kailas-cloud/poisearch/internal/domain/search/result"
	"github.com/kailas-cloud/poisearch/internal/logger"
	healthuc "github.com/kailas-cloud/poisearch/internal/usecase/health"
	"github.com/kailas-cloud/poisearch/internal/usecase/ingest"
)

// maxBulkBodyBytes caps a bulk ingest payload.
const maxBulkBodyBytes = 32 << 20

// Searcher answers place searches.
type Searcher interface {
	Search(ctx context.Context, params request.Params, scope place.Scope) (result.Response, error)
}

// Ingester loads place batches.
type Ingester interface {
	BulkIngest(ctx context.Context, req ingest.Request) (ingest.Response, error)
}

// StatsReader reports semantic index statistics.
type StatsReader interface {
	Stats(ctx context.Context) (result.Stats, error)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Server holds the HTTP handlers.
type Server struct {
	search Searcher
	ingest Ingester
	stats  StatsReader
	health HealthChecker
}

// NewServer creates an HTTP API server.
func NewServer(search Searcher, ingest Ingester, stats StatsReader, health HealthChecker) *Server {
	return &Server{search: search, ingest: ingest, stats: stats, health: health}
}

// Register mounts the API routes on r. auth gates the bulk endpoint.
func (s *Server) Register(r chi.Router, auth *Auth) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/search", s.Search)
		r.Post("/query/parse", s.ParseQuery)
		r.Get("/stats", s.Stats)
		r.With(auth.RequirePrivileged).Post("/places/bulk", s.BulkIngest)
	})
}

// Search handles POST /v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var params request.Params
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	resp, err := s.search.Search(ctx, params, ScopeFromContext(ctx))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, resp)
}

// bulkHaltedResponse carries the partial outcome of a batch stopped by an
// unavailable embedder.
type bulkHaltedResponse struct {
	ErrorResponse
	Partial ingest.Response `json:"partial"`
}

// BulkIngest handles POST /v1/places/bulk.
func (s *Server) BulkIngest(w http.ResponseWriter, r *http.Request) {
	var req ingest.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBulkBodyBytes)).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, CodeBatchTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	resp, err := s.ingest.BulkIngest(ctx, req)
	setEmbeddingHeaders(w, usage)
	if err != nil {
		if resp.SuccessCount+resp.ErrorCount == 0 {
			s.handleDomainError(w, r, err)
			return
		}
		status, code, msg := classify(err)
		logger.FromContext(ctx).Warn("Bulk ingest returned partial result", zap.Error(err))
		writeJSON(w, status, bulkHaltedResponse{
			ErrorResponse: ErrorResponse{Code: code, Message: msg},
			Partial:       resp,
		})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Stats handles GET /v1/stats.
func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := s.stats.Stats(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type parseRequest struct {
	Query string `json:"query"`
}

// ParseQuery handles POST /v1/query/parse.
func (s *Server) ParseQuery(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	q := strings.TrimSpace(req.Query)
	if q == "" || len(q) > request.MaxQueryLength {
		s.handleDomainError(w, r, domain.NewValidationError("query",
			"must be 1 to "+strconv.Itoa(request.MaxQueryLength)+" characters"))
		return
	}
	writeJSON(w, http.StatusOK, query.Parse(q))
}

type healthResponse struct {
	Status healthuc.Status                 `json:"status"`
	Checks map[string]healthuc.CheckResult `json:"checks"`
}

// HealthCheck handles GET /health. A degraded service still answers searches
// and reports 200; only an unhealthy one reports 503.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{Status: report.Status, Checks: report.Checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage.Used() {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens()))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := classify(err)
	log := logger.FromContext(r.Context())
	if status == http.StatusInternalServerError {
		log.Error("internal error", zap.Error(err))
	} else {
		log.Warn("domain error", zap.Error(err), zap.String("code", string(code)))
	}
	writeError(w, status, code, msg)
}
