package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

var _ driven.GenerationService = (*MockGenerationService)(nil)

// MockGenerationService is a mock implementation of GenerationService for testing
type MockGenerationService struct {
	mu      sync.Mutex
	prompts []string
	opts    []driven.GenerateOptions

	// Response is returned by Generate when GenerateFn is nil
	Response *domain.Generation
	// Err is returned by Generate when set
	Err error
	// GenerateFn replaces the default behaviour when set
	GenerateFn func(ctx context.Context, prompt string) (*domain.Generation, error)
}

// NewMockGenerationService creates a mock answering with text and no usage.
func NewMockGenerationService(text string) *MockGenerationService {
	return &MockGenerationService{
		Response: &domain.Generation{Text: text},
	}
}

func (m *MockGenerationService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (*domain.Generation, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.opts = append(m.opts, opts)
	m.mu.Unlock()

	if m.GenerateFn != nil {
		return m.GenerateFn(ctx, prompt)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	gen := *m.Response
	return &gen, nil
}

func (m *MockGenerationService) Model() string {
	return "mock-generation-model"
}

func (m *MockGenerationService) Ping(ctx context.Context) error {
	return nil
}

func (m *MockGenerationService) Close() error {
	return nil
}

// Prompts returns every prompt passed to Generate.
func (m *MockGenerationService) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// Options returns the options of every Generate call.
func (m *MockGenerationService) Options() []driven.GenerateOptions {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]driven.GenerateOptions(nil), m.opts...)
}
