package mocks

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// MockExtractor is a mock implementation of Extractor for testing
type MockExtractor struct {
	FileTypesFn func() []domain.FileType
	PriorityFn  func() int
	ExtractFn   func(ctx context.Context, content []byte) (string, error)
}

func NewMockExtractor() *MockExtractor {
	return &MockExtractor{}
}

func (m *MockExtractor) Extract(ctx context.Context, content []byte) (string, error) {
	if m.ExtractFn != nil {
		return m.ExtractFn(ctx, content)
	}
	return string(content), nil
}

func (m *MockExtractor) FileTypes() []domain.FileType {
	if m.FileTypesFn != nil {
		return m.FileTypesFn()
	}
	return []domain.FileType{domain.FileTypeText, domain.FileTypeMarkdown}
}

func (m *MockExtractor) Priority() int {
	if m.PriorityFn != nil {
		return m.PriorityFn()
	}
	return 100
}

// MockExtractorRegistry is a mock implementation of ExtractorRegistry for testing
type MockExtractorRegistry struct {
	extractors map[domain.FileType]driven.Extractor
}

func NewMockExtractorRegistry() *MockExtractorRegistry {
	r := &MockExtractorRegistry{extractors: make(map[domain.FileType]driven.Extractor)}
	r.Register(NewMockExtractor())
	return r
}

func (m *MockExtractorRegistry) Get(fileType domain.FileType) driven.Extractor {
	return m.extractors[fileType]
}

func (m *MockExtractorRegistry) Register(extractor driven.Extractor) {
	for _, ft := range extractor.FileTypes() {
		m.extractors[ft] = extractor
	}
}

func (m *MockExtractorRegistry) List() []domain.FileType {
	types := make([]domain.FileType, 0, len(m.extractors))
	for ft := range m.extractors {
		types = append(types, ft)
	}
	return types
}
