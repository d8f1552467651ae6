package mocks

import (
	"context"
	"crypto/sha256"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*MockEmbeddingService)(nil)

// MockEmbeddingService hashes each text into a stable vector in [0, 1).
// Pinned vectors and queued errors take precedence.
type MockEmbeddingService struct {
	mu      sync.Mutex
	dim     int
	pinned  map[string][]float32
	pending []error
	batches [][]string

	EmbedFn func(ctx context.Context, texts []string) ([][]float32, error)
}

func NewMockEmbeddingService() *MockEmbeddingService {
	return &MockEmbeddingService{dim: 8, pinned: map[string][]float32{}}
}

func (m *MockEmbeddingService) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.batches = append(m.batches, append([]string(nil), texts...))
	if len(m.pending) > 0 {
		err := m.pending[0]
		m.pending = m.pending[1:]
		m.mu.Unlock()
		return nil, err
	}
	fn := m.EmbedFn
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, texts)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if v, ok := m.pinned[text]; ok {
			out[i] = v
			continue
		}
		out[i] = hashVector(text, m.dim)
	}
	return out, nil
}

func hashVector(text string, dim int) []float32 {
	v := make([]float32, dim)
	sum := sha256.Sum256([]byte(text))
	for i := range v {
		b := sum[i%len(sum)] ^ byte(i/len(sum))
		v[i] = float32(b) / 256
	}
	return v
}

func (m *MockEmbeddingService) Dimensions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dim
}

func (m *MockEmbeddingService) Model() string { return "mock-embedding-model" }

func (m *MockEmbeddingService) HealthCheck(context.Context) error { return nil }

func (m *MockEmbeddingService) Close() error { return nil }

// FailWith makes the next len(errs) Embed calls fail, in order.
func (m *MockEmbeddingService) FailWith(errs ...error) {
	m.mu.Lock()
	m.pending = append(m.pending, errs...)
	m.mu.Unlock()
}

func (m *MockEmbeddingService) SetVector(text string, v []float32) {
	m.mu.Lock()
	m.pinned[text] = v
	m.mu.Unlock()
}

func (m *MockEmbeddingService) SetDimensions(dim int) {
	m.mu.Lock()
	m.dim = dim
	m.mu.Unlock()
}

// Calls returns every batch passed to Embed, failed ones included.
func (m *MockEmbeddingService) Calls() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]string(nil), m.batches...)
}
