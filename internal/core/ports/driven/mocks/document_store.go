package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

var (
	_ driven.DocumentStore = (*MockDocumentStore)(nil)
	_ driven.RevisionStore = (*MockRevisionStore)(nil)
)

// MockDocumentStore is a mock implementation of DocumentStore for testing
type MockDocumentStore struct {
	mu        sync.RWMutex
	documents map[string]*domain.SourceDocument
}

// NewMockDocumentStore creates a new MockDocumentStore
func NewMockDocumentStore() *MockDocumentStore {
	return &MockDocumentStore{
		documents: make(map[string]*domain.SourceDocument),
	}
}

func (m *MockDocumentStore) Save(ctx context.Context, doc *domain.SourceDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *doc
	m.documents[doc.ID] = &cp
	return nil
}

func (m *MockDocumentStore) Get(ctx context.Context, id string) (*domain.SourceDocument, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (m *MockDocumentStore) SetApproval(ctx context.Context, id string, state domain.ApprovalState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.documents[id]
	if !ok {
		return domain.ErrNotFound
	}
	doc.ApprovalState = state
	doc.UpdatedAt = time.Now()
	return nil
}

func (m *MockDocumentStore) List(ctx context.Context, filter driven.DocumentFilter) ([]*domain.SourceDocument, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	search := strings.ToLower(filter.Search)
	var out []*domain.SourceDocument
	for _, d := range m.documents {
		switch {
		case filter.VisibleTo != "" && d.OwnerID != filter.VisibleTo && d.ApprovalState != domain.ApprovalApproved:
			continue
		case filter.ApprovalState != "" && d.ApprovalState != filter.ApprovalState:
			continue
		case filter.OwnerID != "" && d.OwnerID != filter.OwnerID:
			continue
		case filter.Department != "" && !strings.EqualFold(d.Department, filter.Department):
			continue
		case search != "" && !strings.Contains(strings.ToLower(d.Title), search) &&
			!strings.Contains(strings.ToLower(d.Description), search):
			continue
		}
		cp := *d
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

// MockRevisionStore is a mock implementation of RevisionStore for testing.
// ApplyTransition behaves like the conditional UPDATE of the real store.
type MockRevisionStore struct {
	mu        sync.RWMutex
	revisions map[string]*domain.DocumentRevision
	content   map[string][]byte

	// ApplyErr is returned by ApplyTransition when set
	ApplyErr error
	// Applied records every persisted transition
	Applied []domain.Transition
}

// NewMockRevisionStore creates a new MockRevisionStore
func NewMockRevisionStore() *MockRevisionStore {
	return &MockRevisionStore{
		revisions: make(map[string]*domain.DocumentRevision),
		content:   make(map[string][]byte),
	}
}

func (m *MockRevisionStore) Create(ctx context.Context, rev *domain.DocumentRevision, content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	seq := 0
	for _, r := range m.revisions {
		if r.DocumentID == rev.DocumentID && r.Sequence > seq {
			seq = r.Sequence
		}
	}
	rev.Sequence = seq + 1
	if rev.State == "" {
		rev.State = domain.StateUploaded
	}
	cp := *rev
	m.revisions[rev.ID] = &cp
	m.content[rev.ID] = append([]byte(nil), content...)
	return nil
}

func (m *MockRevisionStore) Get(ctx context.Context, id string) (*domain.DocumentRevision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rev, ok := m.revisions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *rev
	return &cp, nil
}

func (m *MockRevisionStore) GetContent(ctx context.Context, id string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	content, ok := m.content[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return content, nil
}

func (m *MockRevisionStore) ListByDocument(ctx context.Context, documentID string) ([]*domain.DocumentRevision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.DocumentRevision
	for _, r := range m.revisions {
		if r.DocumentID == documentID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence > out[j].Sequence })
	return out, nil
}

func (m *MockRevisionStore) ApplyTransition(ctx context.Context, t domain.Transition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applyLocked(t)
}

func (m *MockRevisionStore) applyLocked(t domain.Transition) error {
	if m.ApplyErr != nil {
		return m.ApplyErr
	}
	rev, ok := m.revisions[t.RevisionID()]
	if !ok {
		return domain.ErrNotFound
	}
	if rev.State != t.From() {
		return domain.ErrConflict
	}
	t.ApplyTo(rev)
	m.Applied = append(m.Applied, t)
	return nil
}

func (m *MockRevisionStore) ListStale(ctx context.Context, state domain.ProcessingState, olderThan time.Time, limit int) ([]*domain.DocumentRevision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.DocumentRevision
	for _, r := range m.revisions {
		if r.State == state && r.UpdatedAt.Before(olderThan) {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Put stores a revision as-is (for test setup).
func (m *MockRevisionStore) Put(rev *domain.DocumentRevision, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rev
	m.revisions[rev.ID] = &cp
	m.content[rev.ID] = content
}

// Transitions returns the persisted transitions for one revision.
func (m *MockRevisionStore) Transitions(revisionID string) []domain.Transition {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Transition
	for _, t := range m.Applied {
		if t.RevisionID() == revisionID {
			out = append(out, t)
		}
	}
	return out
}
