package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

const promptHeader = `You are a helpful assistant that answers questions based on internal company documents.

CRITICAL RULES:
1. Answer ONLY using information from the provided sources below
2. If the answer is not in the sources, say "I don't have enough information to answer this question based on the available documents"
3. Never make up or infer information that isn't explicitly stated
4. Cite which source(s) you used (e.g., "According to Source 1...")
5. Be concise and direct

SOURCES:
`

// SynthesizerConfig holds configuration for AnswerSynthesizer.
type SynthesizerConfig struct {
	Generator   driven.GenerationService
	Timeout     time.Duration // Per-call deadline (default: 60s)
	Temperature float64       // Sampling temperature, used as given
	MaxTokens   int           // Completion budget (default: 1000)
	Logger      *slog.Logger
}

// AnswerSynthesizer writes a grounded answer from retrieved chunks.
type AnswerSynthesizer struct {
	generator driven.GenerationService
	timeout   time.Duration
	opts      driven.GenerateOptions
	logger    *slog.Logger
}

// NewAnswerSynthesizer creates a synthesizer.
func NewAnswerSynthesizer(cfg SynthesizerConfig) *AnswerSynthesizer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1000
	}

	return &AnswerSynthesizer{
		generator: cfg.Generator,
		timeout:   timeout,
		opts:      driven.GenerateOptions{Temperature: cfg.Temperature, MaxTokens: maxTokens},
		logger:    logger.With("component", "synthesizer"),
	}
}

// BuildPrompt renders the instruction header, numbered sources and question.
func BuildPrompt(question string, results []*domain.RetrievalResult) string {
	var b strings.Builder
	b.WriteString(promptHeader)
	for i, r := range results {
		fmt.Fprintf(&b, "\n[Source %d: %s]\n%s\n", i+1, r.DocumentTitle, r.Chunk.Text)
	}
	fmt.Fprintf(&b, "\n\nQUESTION: %s\n\nANSWER:", question)
	return b.String()
}

// Synthesize makes one generation call for question over results.
func (s *AnswerSynthesizer) Synthesize(ctx context.Context, question string, results []*domain.RetrievalResult) (*domain.Answer, error) {
	prompt := BuildPrompt(question, results)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	gen, err := s.generator.Generate(callCtx, prompt, s.opts)
	if err != nil {
		return nil, classifyGenerationError(ctx, err)
	}

	tokens := gen.TotalTokens
	if !gen.UsageReported {
		tokens = domain.WordCount(prompt) + domain.WordCount(gen.Text)
	}

	s.logger.Debug("answer generated",
		"sources", len(results),
		"tokens", tokens,
		"usage_reported", gen.UsageReported,
	)

	return &domain.Answer{
		Text:       strings.TrimSpace(gen.Text),
		Prompt:     prompt,
		TokensUsed: tokens,
		Model:      s.generator.Model(),
	}, nil
}

func classifyGenerationError(parent context.Context, err error) error {
	var perr *domain.ProviderError
	if errors.As(err, &perr) {
		return err
	}
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewGenerationError(domain.ReasonTimeout, err)
	}
	return domain.NewGenerationError(domain.ReasonUpstream, err)
}
