package ai

import (
	"fmt"
	"log/slog"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Factory implements AIServiceFactory
var _ driven.AIServiceFactory = (*Factory)(nil)

// Embedding client backends
const (
	BackendHTTP      = "http"
	BackendLangchain = "langchain"
)

// Factory creates AI services based on configuration
type Factory struct {
	logger *slog.Logger
}

// NewFactory creates a new AI service factory
func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{logger: logger}
}

// CreateEmbeddingService creates an embedding service from settings.
// OpenAI uses the native HTTP client unless Backend is "langchain";
// Ollama always goes through langchaingo.
func (f *Factory) CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	var (
		svc driven.EmbeddingService
		err error
	)
	switch settings.Provider {
	case domain.AIProviderOpenAI:
		switch settings.Backend {
		case "", BackendHTTP:
			svc, err = NewOpenAIEmbedding(settings.APIKey, settings.Model, settings.BaseURL, settings.Dimensions)
		case BackendLangchain:
			svc, err = NewLangchainEmbedding(settings, f.logger)
		default:
			return nil, fmt.Errorf("%w: unknown embedding backend %q", domain.ErrInvalidConfig, settings.Backend)
		}
	case domain.AIProviderOllama:
		svc, err = NewLangchainEmbedding(settings, f.logger)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidProvider, settings.Provider)
	}
	if err != nil {
		return nil, err
	}

	if settings.RequestsPerSecond > 0 {
		svc = NewRateLimitedEmbedding(svc, settings.RequestsPerSecond, int(settings.RequestsPerSecond)+1)
	}
	return svc, nil
}

// CreateGenerationService creates a generation service from settings
func (f *Factory) CreateGenerationService(settings *domain.GenerationSettings) (driven.GenerationService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOpenAI, domain.AIProviderOllama:
		return NewLangchainGenerator(settings, f.logger)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidProvider, settings.Provider)
	}
}
