package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

var _ driven.FeedbackStore = (*MockFeedbackStore)(nil)

// MockFeedbackStore is a mock implementation of FeedbackStore for testing.
// It enforces one entry per (query, user) like the unique index.
type MockFeedbackStore struct {
	mu       sync.RWMutex
	feedback map[string]*domain.QueryFeedback

	// CreateErr is returned by Create when set
	CreateErr error
}

// NewMockFeedbackStore creates a new MockFeedbackStore
func NewMockFeedbackStore() *MockFeedbackStore {
	return &MockFeedbackStore{feedback: make(map[string]*domain.QueryFeedback)}
}

func (m *MockFeedbackStore) Create(ctx context.Context, fb *domain.QueryFeedback) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.feedback {
		if f.QueryID == fb.QueryID && f.UserID == fb.UserID {
			return domain.ErrConflict
		}
	}
	cp := *fb
	m.feedback[fb.ID] = &cp
	return nil
}

func (m *MockFeedbackStore) Get(ctx context.Context, id string) (*domain.QueryFeedback, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.feedback[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (m *MockFeedbackStore) List(ctx context.Context, filter driven.FeedbackFilter) ([]*domain.QueryFeedback, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.QueryFeedback
	for _, f := range m.feedback {
		if filter.Type != "" && f.Type != filter.Type {
			continue
		}
		if filter.Reviewed != nil && f.Reviewed != *filter.Reviewed {
			continue
		}
		cp := *f
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return page(out, filter.Limit, filter.Offset), nil
}

func (m *MockFeedbackStore) MarkReviewed(ctx context.Context, id, reviewerID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.feedback[id]
	if !ok {
		return domain.ErrNotFound
	}
	f.MarkReviewed(reviewerID, at)
	return nil
}
