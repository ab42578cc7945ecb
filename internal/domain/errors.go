package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrValidation signals a malformed request; nothing was executed.
	ErrValidation = errors.New("validation error")
	// ErrEngineUnavailable signals an unreachable search backend or embedder.
	ErrEngineUnavailable = errors.New("engine unavailable")
	// ErrTimeout signals a search branch that ran out of time.
	ErrTimeout = errors.New("timeout")
	// ErrIngestItem signals a single bulk ingestion record failure.
	ErrIngestItem = errors.New("ingest item error")
	// ErrBatchTooLarge signals a bulk request above the configured limit.
	ErrBatchTooLarge = errors.New("batch too large")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrRateLimited signals a rate limit hit at the embedding provider.
	ErrRateLimited = errors.New("rate limited")
)

// Engine names used in EngineUnavailableError.
const (
	EngineLexical  = "lexical"
	EngineSemantic = "semantic"
	EngineEmbedder = "embedder"
)

// ValidationError describes the offending field of a rejected request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation.Error(), e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrValidation.Error(), e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a validation error for a field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// EngineUnavailableError reports which engine failed and why.
// It matches both ErrEngineUnavailable and the underlying cause.
type EngineUnavailableError struct {
	Engine string
	Err    error
}

func (e *EngineUnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s engine unavailable", e.Engine)
	}
	return fmt.Sprintf("%s engine unavailable: %v", e.Engine, e.Err)
}

func (e *EngineUnavailableError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrEngineUnavailable}
	}
	return []error{ErrEngineUnavailable, e.Err}
}

// NewEngineUnavailable wraps err as an engine failure. A nil err stays nil.
// Deadline errors additionally match ErrTimeout.
func NewEngineUnavailable(engine string, err error) error {
	if err == nil {
		return nil
	}
	var eu *EngineUnavailableError
	if errors.As(err, &eu) && eu.Engine == engine {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrTimeout) {
		err = fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return &EngineUnavailableError{Engine: engine, Err: err}
}

// IsEngineUnavailable reports whether err, or any engine failure it wraps,
// names the given engine.
func IsEngineUnavailable(err error, engine string) bool {
	for err != nil {
		var eu *EngineUnavailableError
		if !errors.As(err, &eu) {
			return false
		}
		if eu.Engine == engine {
			return true
		}
		err = eu.Err
	}
	return false
}

// IngestItemError ties a record failure to its place id.
type IngestItemError struct {
	PlaceID string
	Err     error
}

func (e *IngestItemError) Error() string {
	return fmt.Sprintf("%s: %v", e.PlaceID, e.Err)
}

func (e *IngestItemError) Unwrap() []error { return []error{ErrIngestItem, e.Err} }
