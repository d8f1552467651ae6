package domain

import (
	"errors"
	"fmt"
)

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the principal lacks permission for this action
	ErrForbidden = errors.New("forbidden")

	// ErrConflict indicates a concurrent writer changed the row first
	ErrConflict = errors.New("conflict")

	// ErrInvalidTransition indicates a revision is not in the state required for the operation
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidConfig indicates a configuration value is out of range
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrTokenExpired indicates the auth token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the auth token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")

	// ErrUnsupportedFormat indicates the declared file type has no extractor
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrExtractionFailed indicates the file could not be parsed
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrEmptyContent indicates extraction produced too little text to index
	ErrEmptyContent = errors.New("empty content")

	// ErrEmbeddingService indicates the embedding provider failed
	ErrEmbeddingService = errors.New("embedding service error")

	// ErrGenerationService indicates the generation provider failed
	ErrGenerationService = errors.New("generation service error")

	// ErrQueryFailed indicates a query could not be answered
	ErrQueryFailed = errors.New("query failed")

	// ErrInvalidProvider indicates an unknown AI provider was specified
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrServiceUnavailable indicates the AI service could not be reached
	ErrServiceUnavailable = errors.New("service unavailable")
)

// ProviderService names the remote model service an error came from.
type ProviderService string

const (
	ProviderEmbedding  ProviderService = "embedding"
	ProviderGeneration ProviderService = "generation"
)

// ProviderReason classifies a provider failure.
type ProviderReason string

const (
	ReasonRateLimited   ProviderReason = "rate_limited"
	ReasonQuotaExceeded ProviderReason = "quota_exceeded"
	ReasonTimeout       ProviderReason = "timeout"
	ReasonUpstream      ProviderReason = "upstream"
)

// ProviderError is returned by embedding and generation adapters.
// errors.Is matches it against ErrEmbeddingService or ErrGenerationService.
type ProviderError struct {
	Service ProviderService
	Reason  ProviderReason
	Err     error
}

// NewEmbeddingError creates an embedding ProviderError.
func NewEmbeddingError(reason ProviderReason, err error) *ProviderError {
	return &ProviderError{Service: ProviderEmbedding, Reason: reason, Err: err}
}

// NewGenerationError creates a generation ProviderError.
func NewGenerationError(reason ProviderReason, err error) *ProviderError {
	return &ProviderError{Service: ProviderGeneration, Reason: reason, Err: err}
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s service error: %s", e.Service, e.Reason)
	}
	return fmt.Sprintf("%s service error: %s: %v", e.Service, e.Reason, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's service.
func (e *ProviderError) Is(target error) bool {
	switch target {
	case ErrEmbeddingService:
		return e.Service == ProviderEmbedding
	case ErrGenerationService:
		return e.Service == ProviderGeneration
	}
	return false
}

// Transient reports whether the same call may succeed shortly after.
func (e *ProviderError) Transient() bool {
	return e.Reason == ReasonRateLimited || e.Reason == ReasonTimeout
}

// Retryable reports whether a later attempt may succeed.
// Quota exhaustion needs an operator and is never retried.
func (e *ProviderError) Retryable() bool {
	return e.Reason != ReasonQuotaExceeded
}

// IsRetryable decides whether a failed ingestion attempt should be scheduled again.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Retryable()
	}
	switch {
	case errors.Is(err, ErrUnsupportedFormat),
		errors.Is(err, ErrExtractionFailed),
		errors.Is(err, ErrEmptyContent),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrNotFound):
		return false
	}
	return true
}
