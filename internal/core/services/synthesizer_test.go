package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven/mocks"
)

func sampleResults() []*domain.RetrievalResult {
	return []*domain.RetrievalResult{
		{
			Chunk:         &domain.Chunk{ID: "c1", Text: "Remote work is allowed three days per week."},
			DocumentTitle: "Remote Work Policy",
			Score:         0.91,
			Rank:          1,
		},
		{
			Chunk:         &domain.Chunk{ID: "c2", Text: "Managers approve schedules."},
			DocumentTitle: "Manager Guide",
			Score:         0.8,
			Rank:          2,
		},
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("How many remote days?", sampleResults())

	assert.True(t, strings.HasPrefix(prompt, "You are a helpful assistant"))
	assert.Contains(t, prompt, `say "I don't have enough information to answer this question based on the available documents"`)
	assert.Contains(t, prompt, "\n[Source 1: Remote Work Policy]\nRemote work is allowed three days per week.\n")
	assert.Contains(t, prompt, "\n[Source 2: Manager Guide]\nManagers approve schedules.\n")
	assert.True(t, strings.HasSuffix(prompt, "QUESTION: How many remote days?\n\nANSWER:"))
	assert.Less(t, strings.Index(prompt, "Source 1"), strings.Index(prompt, "Source 2"))
}

func TestSynthesize_UsesReportedUsage(t *testing.T) {
	gen := mocks.NewMockGenerationService("")
	gen.Response = &domain.Generation{Text: " Three days. ", TotalTokens: 321, UsageReported: true}
	s := NewAnswerSynthesizer(SynthesizerConfig{Generator: gen, Temperature: 0.3})

	answer, err := s.Synthesize(context.Background(), "How many remote days?", sampleResults())
	require.NoError(t, err)

	assert.Equal(t, "Three days.", answer.Text)
	assert.Equal(t, 321, answer.TokensUsed)
	assert.Equal(t, "mock-generation-model", answer.Model)

	opts := gen.Options()
	require.Len(t, opts, 1)
	assert.Equal(t, 0.3, opts[0].Temperature)
	assert.Equal(t, 1000, opts[0].MaxTokens)
}

func TestSynthesize_ZeroTemperatureIsKept(t *testing.T) {
	gen := mocks.NewMockGenerationService("Three days.")
	s := NewAnswerSynthesizer(SynthesizerConfig{Generator: gen, Temperature: 0})

	_, err := s.Synthesize(context.Background(), "How many remote days?", sampleResults())
	require.NoError(t, err)

	opts := gen.Options()
	require.Len(t, opts, 1)
	assert.Zero(t, opts[0].Temperature)
}

func TestSynthesize_EstimatesTokensWhenUsageMissing(t *testing.T) {
	gen := mocks.NewMockGenerationService("Three days per week.")
	s := NewAnswerSynthesizer(SynthesizerConfig{Generator: gen})

	answer, err := s.Synthesize(context.Background(), "How many remote days?", sampleResults())
	require.NoError(t, err)

	want := domain.WordCount(gen.Prompts()[0]) + 4
	assert.Equal(t, want, answer.TokensUsed)
	assert.Equal(t, gen.Prompts()[0], answer.Prompt)
}

func TestSynthesize_ProviderErrorsPassThrough(t *testing.T) {
	gen := mocks.NewMockGenerationService("")
	gen.Err = domain.NewGenerationError(domain.ReasonQuotaExceeded, nil)
	s := NewAnswerSynthesizer(SynthesizerConfig{Generator: gen})

	_, err := s.Synthesize(context.Background(), "q", sampleResults())
	var perr *domain.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, domain.ReasonQuotaExceeded, perr.Reason)
	assert.ErrorIs(t, err, domain.ErrGenerationService)
}

func TestSynthesize_ClassifiesUntypedErrors(t *testing.T) {
	gen := mocks.NewMockGenerationService("")
	gen.Err = errors.New("bad gateway")
	s := NewAnswerSynthesizer(SynthesizerConfig{Generator: gen})

	_, err := s.Synthesize(context.Background(), "q", sampleResults())
	var perr *domain.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, domain.ReasonUpstream, perr.Reason)
}

func TestSynthesize_Timeout(t *testing.T) {
	gen := mocks.NewMockGenerationService("")
	gen.GenerateFn = func(ctx context.Context, prompt string) (*domain.Generation, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	s := NewAnswerSynthesizer(SynthesizerConfig{Generator: gen, Timeout: 5 * time.Millisecond})

	_, err := s.Synthesize(context.Background(), "q", sampleResults())
	var perr *domain.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, domain.ReasonTimeout, perr.Reason)
}

func TestSynthesize_CallerCancellation(t *testing.T) {
	gen := mocks.NewMockGenerationService("answer")
	s := NewAnswerSynthesizer(SynthesizerConfig{Generator: gen})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Synthesize(ctx, "q", sampleResults())
	assert.ErrorIs(t, err, context.Canceled)
}
