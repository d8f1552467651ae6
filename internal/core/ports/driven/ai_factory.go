package driven

import "github.com/custodia-labs/sercha-rag/internal/core/domain"

// AIServiceFactory builds provider clients from runtime settings. Both
// methods return nil, nil when the settings leave the provider unset.
type AIServiceFactory interface {
	CreateEmbeddingService(settings *domain.EmbeddingSettings) (EmbeddingService, error)
	CreateGenerationService(settings *domain.GenerationSettings) (GenerationService, error)
}
