package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// GenerateOptions tunes a single completion.
type GenerateOptions struct {
	Temperature float64
	MaxTokens   int
}

// GenerationService produces a completion for a prompt.
type GenerationService interface {
	// Generate returns the completion and, when the provider reports it, token usage.
	// Errors are *domain.ProviderError values carrying a sub-reason.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (*domain.Generation, error)

	// Model returns the model name being used
	Model() string

	// Ping verifies the generation service is available
	Ping(ctx context.Context) error

	// Close releases resources held by the generation service
	Close() error
}
