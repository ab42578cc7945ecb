package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/kailas-cloud/poisearch/internal/domain"
)

// ErrCircuitOpen is returned without calling the provider while the circuit is open.
var ErrCircuitOpen = errors.New("embedding circuit open")

// BreakerSettings configures BreakerEmbedder.
type BreakerSettings struct {
	Name             string
	FailureThreshold int           // consecutive failures that open the circuit
	OpenTimeout      time.Duration // open → half-open after this long
	// OnStateChange observes transitions, e.g. to export a gauge.
	OnStateChange func(from, to gobreaker.State)
}

// BreakerEmbedder fails fast while the provider is known to be down, so a
// search degrades to lexical-only immediately instead of waiting out the
// semantic timeout on every request.
type BreakerEmbedder struct {
	inner domain.Embedder
	cb    *gobreaker.CircuitBreaker
}

// NewBreakerEmbedder wraps inner with a consecutive-failure circuit breaker.
// Rejected input and caller cancellation do not count as provider failures.
func NewBreakerEmbedder(inner domain.Embedder, s BreakerSettings, logger *zap.Logger) *BreakerEmbedder {
	threshold := uint32(max(s.FailureThreshold, 1)) //nolint:gosec // bounded by config validation
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrValidation) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Embedding circuit state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if s.OnStateChange != nil {
				s.OnStateChange(from, to)
			}
		},
	})
	return &BreakerEmbedder{inner: inner, cb: cb}
}

// Embed implements domain.Embedder.
func (b *BreakerEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	v, err := b.cb.Execute(func() (any, error) {
		return b.inner.Embed(ctx, text)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return domain.EmbeddingResult{}, fmt.Errorf("%w: %w", ErrCircuitOpen, domain.ErrEmbeddingProviderError)
		}
		return domain.EmbeddingResult{}, err //nolint:wrapcheck // inner error is already classified
	}
	return v.(domain.EmbeddingResult), nil //nolint:forcetypeassert // Execute returns what inner returned
}

// State reports the current circuit state.
func (b *BreakerEmbedder) State() gobreaker.State { return b.cb.State() }
