package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

var _ driven.QueryStore = (*MockQueryStore)(nil)

// MockQueryStore is a mock implementation of QueryStore for testing
type MockQueryStore struct {
	mu      sync.RWMutex
	records []*domain.QueryRecord

	// SaveErr is returned by Save when set
	SaveErr error
}

// NewMockQueryStore creates a new MockQueryStore
func NewMockQueryStore() *MockQueryStore {
	return &MockQueryStore{}
}

func (m *MockQueryStore) Save(ctx context.Context, rec *domain.QueryRecord) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.records = append(m.records, &cp)
	return nil
}

func (m *MockQueryStore) Get(ctx context.Context, id string) (*domain.QueryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.records {
		if r.ID == id {
			cp := *r
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockQueryStore) ListByUser(ctx context.Context, filter driven.QueryFilter) ([]*domain.QueryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	search := strings.ToLower(filter.Search)
	var out []*domain.QueryRecord
	for _, r := range m.records {
		if r.UserID != filter.UserID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(r.Question), search) &&
			!strings.Contains(strings.ToLower(r.Answer), search) {
			continue
		}
		cp := *r
		cp.Citations = nil
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, filter.Limit, filter.Offset), nil
}

// Records returns every saved record.
func (m *MockQueryStore) Records() []*domain.QueryRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.QueryRecord(nil), m.records...)
}
