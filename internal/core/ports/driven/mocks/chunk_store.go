package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

var _ driven.ChunkStore = (*MockChunkStore)(nil)

// MockChunkStore is a mock implementation of ChunkStore for testing.
// Replacement and the completing transition commit together or not at all.
type MockChunkStore struct {
	mu         sync.RWMutex
	revisions  *MockRevisionStore
	byRevision map[string][]*domain.Chunk

	// ReplaceErr makes ReplaceForRevision fail before any change
	ReplaceErr error
}

// NewMockChunkStore creates a new MockChunkStore sharing state with revisions
func NewMockChunkStore(revisions *MockRevisionStore) *MockChunkStore {
	return &MockChunkStore{
		revisions:  revisions,
		byRevision: make(map[string][]*domain.Chunk),
	}
}

func (m *MockChunkStore) ReplaceForRevision(ctx context.Context, revisionID string, chunks []*domain.Chunk, complete domain.Transition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReplaceErr != nil {
		return m.ReplaceErr
	}
	if complete.RevisionID() != revisionID {
		return domain.ErrInvalidTransition
	}

	m.revisions.mu.Lock()
	err := m.revisions.applyLocked(complete)
	m.revisions.mu.Unlock()
	if err != nil {
		return err
	}

	m.byRevision[revisionID] = append([]*domain.Chunk(nil), chunks...)
	return nil
}

func (m *MockChunkStore) ListByRevision(ctx context.Context, revisionID string) ([]*domain.Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := append([]*domain.Chunk(nil), m.byRevision[revisionID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Ordinal < out[j].Ordinal })
	return out, nil
}

// Put stores chunks directly (for test setup).
func (m *MockChunkStore) Put(revisionID string, chunks ...*domain.Chunk) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byRevision[revisionID] = append(m.byRevision[revisionID], chunks...)
}

func (m *MockChunkStore) all() []*domain.Chunk {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Chunk
	for _, chunks := range m.byRevision {
		out = append(out, chunks...)
	}
	return out
}
