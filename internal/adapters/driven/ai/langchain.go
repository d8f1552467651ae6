package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

var (
	_ driven.EmbeddingService  = (*LangchainEmbedding)(nil)
	_ driven.GenerationService = (*LangchainGenerator)(nil)
)

const defaultOllamaURL = "http://localhost:11434"

// Native sizes of common Ollama embedding models
var ollamaModelDimensions = map[string]int{
	"nomic-embed-text":  768,
	"mxbai-embed-large": 1024,
	"all-minilm":        384,
}

// LangchainEmbedding implements EmbeddingService over a langchaingo embedder.
type LangchainEmbedding struct {
	embedder   embeddings.Embedder
	model      string
	dimensions int
	httpClient *http.Client
	logger     *slog.Logger
}

// NewLangchainEmbedding creates an embedding service for an OpenAI-compatible
// or Ollama endpoint.
func NewLangchainEmbedding(settings *domain.EmbeddingSettings, logger *slog.Logger) (*LangchainEmbedding, error) {
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := &http.Client{}

	var (
		client     embeddings.EmbedderClient
		dimensions = settings.Dimensions
	)

	switch settings.Provider {
	case domain.AIProviderOpenAI:
		opts := []openai.Option{
			openai.WithToken(settings.APIKey),
			openai.WithEmbeddingModel(settings.Model),
			openai.WithHTTPClient(httpClient),
		}
		if settings.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(settings.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create openai client: %w", err)
		}
		client = llm
		if dimensions == 0 {
			dimensions = nativeDimensions[settings.Model]
		}
	case domain.AIProviderOllama:
		baseURL := settings.BaseURL
		if baseURL == "" {
			baseURL = defaultOllamaURL
		}
		llm, err := ollama.New(
			ollama.WithModel(settings.Model),
			ollama.WithServerURL(baseURL),
			ollama.WithHTTPClient(httpClient),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama client: %w", err)
		}
		client = llm
		if dimensions == 0 {
			dimensions = ollamaModelDimensions[strings.Split(settings.Model, ":")[0]]
		}
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidProvider, settings.Provider)
	}

	if dimensions == 0 {
		return nil, fmt.Errorf("%w: embedding dimensions unknown for model %q", domain.ErrInvalidConfig, settings.Model)
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	return &LangchainEmbedding{
		embedder:   embedder,
		model:      settings.Model,
		dimensions: dimensions,
		httpClient: httpClient,
		logger:     logger.With("component", "langchain-embedding", "provider", settings.Provider),
	}, nil
}

// Embed generates embeddings for texts in input order
func (e *LangchainEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	e.logger.Debug("generating embeddings", "count", len(texts))
	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, asProviderError(err, domain.NewEmbeddingError)
	}
	return vectors, nil
}

func (e *LangchainEmbedding) Dimensions() int {
	return e.dimensions
}

func (e *LangchainEmbedding) Model() string {
	return e.model
}

// HealthCheck embeds a short sample text
func (e *LangchainEmbedding) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := e.embedder.EmbedQuery(ctx, "health check")
	if err != nil {
		return asProviderError(err, domain.NewEmbeddingError)
	}
	return nil
}

func (e *LangchainEmbedding) Close() error {
	e.httpClient.CloseIdleConnections()
	return nil
}

// LangchainGenerator implements GenerationService over a langchaingo chat model.
type LangchainGenerator struct {
	llm        llms.Model
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewLangchainGenerator creates a generation service for an OpenAI-compatible
// or Ollama endpoint.
func NewLangchainGenerator(settings *domain.GenerationSettings, logger *slog.Logger) (*LangchainGenerator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := &http.Client{}

	var model llms.Model
	switch settings.Provider {
	case domain.AIProviderOpenAI:
		opts := []openai.Option{
			openai.WithToken(settings.APIKey),
			openai.WithModel(settings.Model),
			openai.WithHTTPClient(httpClient),
		}
		if settings.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(settings.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create openai client: %w", err)
		}
		model = llm
	case domain.AIProviderOllama:
		baseURL := settings.BaseURL
		if baseURL == "" {
			baseURL = defaultOllamaURL
		}
		llm, err := ollama.New(
			ollama.WithModel(settings.Model),
			ollama.WithServerURL(baseURL),
			ollama.WithHTTPClient(httpClient),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama client: %w", err)
		}
		model = llm
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidProvider, settings.Provider)
	}

	return &LangchainGenerator{
		llm:        model,
		model:      settings.Model,
		httpClient: httpClient,
		logger:     logger.With("component", "langchain-generator", "provider", settings.Provider),
	}, nil
}

// Generate sends prompt as a single human message.
func (g *LangchainGenerator) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (*domain.Generation, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	callOpts := []llms.CallOption{llms.WithTemperature(opts.Temperature)}
	if opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(opts.MaxTokens))
	}

	resp, err := g.llm.GenerateContent(ctx, content, callOpts...)
	if err != nil {
		return nil, asProviderError(err, domain.NewGenerationError)
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return nil, domain.NewGenerationError(domain.ReasonUpstream, errors.New("no choices returned"))
	}

	choice := resp.Choices[0]
	gen := &domain.Generation{Text: choice.Content}

	promptTokens, okP := intFromInfo(choice.GenerationInfo, "PromptTokens")
	completionTokens, okC := intFromInfo(choice.GenerationInfo, "CompletionTokens")
	total, okT := intFromInfo(choice.GenerationInfo, "TotalTokens")
	if okP || okC || okT {
		if !okT {
			total = promptTokens + completionTokens
		}
		if total > 0 {
			gen.PromptTokens = promptTokens
			gen.CompletionTokens = completionTokens
			gen.TotalTokens = total
			gen.UsageReported = true
		}
	}

	g.logger.Debug("generation complete", "tokens", gen.TotalTokens, "usage_reported", gen.UsageReported)
	return gen, nil
}

func (g *LangchainGenerator) Model() string {
	return g.model
}

// Ping sends a one-token completion
func (g *LangchainGenerator) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := g.Generate(ctx, "ping", driven.GenerateOptions{MaxTokens: 1})
	return err
}

func (g *LangchainGenerator) Close() error {
	g.httpClient.CloseIdleConnections()
	return nil
}

// intFromInfo reads a token count from GenerationInfo. Providers report
// ints, JSON decoding paths yield float64.
func intFromInfo(info map[string]any, key string) (int, bool) {
	switch v := info[key].(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}
