package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates search runs lexical-only.
	Degraded Status = "degraded"
	// Unhealthy indicates search cannot be served.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names reported in Report.Checks.
const (
	ComponentDatabase  = "database"
	ComponentIndexes   = "indexes"
	ComponentEmbedding = "embedding"
)

const defaultProbeTimeout = 2 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Deps lists what the service probes. Indexes and Embedding are optional.
type Deps struct {
	DB         DBPinger
	Indexes    IndexLister
	IndexNames []string
	Embedding  EmbeddingChecker
	Timeout    time.Duration
}

type probe struct {
	name     string
	critical bool
	run      func(ctx context.Context) error
}

// Service coordinates health checks.
type Service struct {
	probes  []probe
	timeout time.Duration
}

// New creates a Service from its dependencies.
func New(d Deps) *Service {
	s := &Service{timeout: d.Timeout}
	if s.timeout <= 0 {
		s.timeout = defaultProbeTimeout
	}

	s.probes = append(s.probes, probe{name: ComponentDatabase, critical: true, run: d.DB.Ping})
	if d.Indexes != nil && len(d.IndexNames) > 0 {
		s.probes = append(s.probes, probe{
			name:     ComponentIndexes,
			critical: true,
			run:      indexesProbe(d.Indexes, d.IndexNames),
		})
	}
	if d.Embedding != nil {
		s.probes = append(s.probes, probe{name: ComponentEmbedding, run: d.Embedding.HealthCheck})
	}
	return s
}

func indexesProbe(lister IndexLister, names []string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		for _, name := range names {
			ok, err := lister.IndexExists(ctx, name)
			if err != nil {
				return fmt.Errorf("index %s: %w", name, err)
			}
			if !ok {
				return fmt.Errorf("index %s missing", name)
			}
		}
		return nil
	}
}

// Check runs all probes concurrently, each under its own timeout.
// A failed critical probe makes the service unhealthy; any other failure degrades it.
func (s *Service) Check(ctx context.Context) Report {
	var (
		mu       sync.Mutex
		checks   = make(map[string]CheckResult, len(s.probes))
		critical bool
		degraded bool
	)

	var g errgroup.Group
	for _, p := range s.probes {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()

			result := CheckOK
			if err := p.run(pctx); err != nil {
				result = CheckError
			}

			mu.Lock()
			defer mu.Unlock()
			checks[p.name] = result
			if result == CheckError {
				if p.critical {
					critical = true
				} else {
					degraded = true
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	status := Healthy
	switch {
	case critical:
		status = Unhealthy
	case degraded:
		status = Degraded
	}
	return Report{Status: status, Checks: checks}
}
