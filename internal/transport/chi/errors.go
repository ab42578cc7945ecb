package chi

import (
	"errors"
	"net/http"

	"github.com/kailas-cloud/poisearch/internal/domain"
)

// ErrorCode is a stable machine-readable error identifier.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest             ErrorCode = "bad_request"
	CodeValidationFailed       ErrorCode = "validation_failed"
	CodeUnauthorized           ErrorCode = "unauthorized"
	CodeForbidden              ErrorCode = "forbidden"
	CodeBatchTooLarge          ErrorCode = "batch_too_large"
	CodeRateLimited            ErrorCode = "rate_limited"
	CodeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	CodeEngineUnavailable      ErrorCode = "engine_unavailable"
	CodeNotFound               ErrorCode = "not_found"
	CodeInternalError          ErrorCode = "internal_error"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorMapping ties a sentinel to its HTTP status. First match wins.
type errorMapping struct {
	sentinel error
	status   int
	code     ErrorCode
}

var errorMappings = []errorMapping{
	{domain.ErrValidation, http.StatusBadRequest, CodeValidationFailed},
	{domain.ErrBatchTooLarge, http.StatusRequestEntityTooLarge, CodeBatchTooLarge},
	{domain.ErrNotFound, http.StatusNotFound, CodeNotFound},
	{domain.ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited},
	{domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingProviderError},
	{domain.ErrEngineUnavailable, http.StatusServiceUnavailable, CodeEngineUnavailable},
}

// classify maps a domain error to status, code and a client-safe message.
func classify(err error) (int, ErrorCode, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.sentinel) {
			return m.status, m.code, safeDomainMessage(err, m.sentinel)
		}
	}
	return http.StatusInternalServerError, CodeInternalError, "internal error"
}

// safeDomainMessage returns a message for the client without exposing internals.
// Validation errors name the offending field; everything else is the sentinel text.
func safeDomainMessage(err, sentinel error) string {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	if errors.Is(err, domain.ErrTimeout) {
		return sentinel.Error() + ": " + domain.ErrTimeout.Error()
	}
	return sentinel.Error()
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
