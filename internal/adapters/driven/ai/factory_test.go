package ai

import (
	"errors"
	"testing"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestFactory_CreateEmbeddingService_NotConfigured(t *testing.T) {
	factory := NewFactory(nil)

	for _, settings := range []*domain.EmbeddingSettings{
		nil,
		{},
		{Provider: domain.AIProviderOpenAI, Model: "text-embedding-3-small"},
	} {
		svc, err := factory.CreateEmbeddingService(settings)
		if err != nil {
			t.Errorf("expected no error for unconfigured settings, got %v", err)
		}
		if svc != nil {
			t.Error("expected nil service for unconfigured settings")
		}
	}
}

func TestFactory_CreateEmbeddingService_OpenAIHTTP(t *testing.T) {
	factory := NewFactory(nil)

	svc, err := factory.CreateEmbeddingService(&domain.EmbeddingSettings{
		Provider: domain.AIProviderOpenAI,
		Model:    "text-embedding-3-small",
		APIKey:   "sk-test",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := svc.(*OpenAIEmbedding); !ok {
		t.Errorf("expected *OpenAIEmbedding, got %T", svc)
	}
}

func TestFactory_CreateEmbeddingService_OpenAILangchain(t *testing.T) {
	factory := NewFactory(nil)

	svc, err := factory.CreateEmbeddingService(&domain.EmbeddingSettings{
		Provider: domain.AIProviderOpenAI,
		Backend:  BackendLangchain,
		Model:    "text-embedding-3-large",
		APIKey:   "sk-test",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := svc.(*LangchainEmbedding); !ok {
		t.Errorf("expected *LangchainEmbedding, got %T", svc)
	}
	if svc.Dimensions() != 3072 {
		t.Errorf("expected 3072 dimensions, got %d", svc.Dimensions())
	}
}

func TestFactory_CreateEmbeddingService_Ollama(t *testing.T) {
	factory := NewFactory(nil)

	svc, err := factory.CreateEmbeddingService(&domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		Model:    "nomic-embed-text:latest",
		BaseURL:  "http://localhost:11434",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.Dimensions() != 768 {
		t.Errorf("expected 768 dimensions, got %d", svc.Dimensions())
	}
}

func TestFactory_CreateEmbeddingService_OllamaUnknownDimensions(t *testing.T) {
	factory := NewFactory(nil)

	_, err := factory.CreateEmbeddingService(&domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		Model:    "some-custom-embedder",
	})
	if !errors.Is(err, domain.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestFactory_CreateEmbeddingService_RateLimited(t *testing.T) {
	factory := NewFactory(nil)

	svc, err := factory.CreateEmbeddingService(&domain.EmbeddingSettings{
		Provider:          domain.AIProviderOpenAI,
		APIKey:            "sk-test",
		RequestsPerSecond: 2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := svc.(*RateLimitedEmbedding); !ok {
		t.Errorf("expected *RateLimitedEmbedding, got %T", svc)
	}
	if svc.Model() != "text-embedding-3-small" {
		t.Errorf("expected wrapped model name, got %s", svc.Model())
	}
}

func TestFactory_CreateEmbeddingService_Invalid(t *testing.T) {
	factory := NewFactory(nil)

	_, err := factory.CreateEmbeddingService(&domain.EmbeddingSettings{
		Provider: "invalid-provider",
		Model:    "some-model",
	})
	if !errors.Is(err, domain.ErrInvalidProvider) {
		t.Errorf("expected ErrInvalidProvider, got %v", err)
	}

	_, err = factory.CreateEmbeddingService(&domain.EmbeddingSettings{
		Provider: domain.AIProviderOpenAI,
		APIKey:   "sk-test",
		Backend:  "grpc",
	})
	if !errors.Is(err, domain.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestFactory_CreateGenerationService(t *testing.T) {
	factory := NewFactory(nil)

	svc, err := factory.CreateGenerationService(nil)
	if err != nil || svc != nil {
		t.Errorf("expected nil, nil for nil settings, got %v, %v", svc, err)
	}

	svc, err = factory.CreateGenerationService(&domain.GenerationSettings{
		Provider: domain.AIProviderOpenAI,
		Model:    "gpt-4o-mini",
		APIKey:   "sk-test",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.Model() != "gpt-4o-mini" {
		t.Errorf("expected model gpt-4o-mini, got %s", svc.Model())
	}

	svc, err = factory.CreateGenerationService(&domain.GenerationSettings{
		Provider: domain.AIProviderOllama,
		Model:    "llama3.2",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.Model() != "llama3.2" {
		t.Errorf("expected model llama3.2, got %s", svc.Model())
	}

	_, err = factory.CreateGenerationService(&domain.GenerationSettings{Provider: "anthropic", APIKey: "k"})
	if !errors.Is(err, domain.ErrInvalidProvider) {
		t.Errorf("expected ErrInvalidProvider, got %v", err)
	}
}
