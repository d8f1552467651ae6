package mocks

import (
	"context"
	"math"
	"sort"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

var _ driven.SimilarityIndex = (*MockSimilarityIndex)(nil)

// MockSimilarityIndex is an in-memory SimilarityIndex over the mock stores.
// It applies the same visibility rules as the pgvector index.
type MockSimilarityIndex struct {
	documents *MockDocumentStore
	revisions *MockRevisionStore
	chunks    *MockChunkStore

	// SearchFn replaces the in-memory search when set
	SearchFn func(ctx context.Context, q domain.SearchQuery) ([]*domain.Candidate, error)
	// Queries records every search request
	Queries []domain.SearchQuery
}

// NewMockSimilarityIndex creates an index reading from the given stores
func NewMockSimilarityIndex(docs *MockDocumentStore, revs *MockRevisionStore, chunks *MockChunkStore) *MockSimilarityIndex {
	return &MockSimilarityIndex{documents: docs, revisions: revs, chunks: chunks}
}

func (m *MockSimilarityIndex) Search(ctx context.Context, q domain.SearchQuery) ([]*domain.Candidate, error) {
	m.Queries = append(m.Queries, q)
	if m.SearchFn != nil {
		return m.SearchFn(ctx, q)
	}

	latestReady := make(map[string]int)
	m.revisions.mu.RLock()
	for _, r := range m.revisions.revisions {
		if r.State == domain.StateReady && r.Sequence > latestReady[r.DocumentID] {
			latestReady[r.DocumentID] = r.Sequence
		}
	}
	m.revisions.mu.RUnlock()

	var out []*domain.Candidate
	for _, c := range m.chunks.all() {
		rev, err := m.revisions.Get(ctx, c.RevisionID)
		if err != nil || rev.State != domain.StateReady || rev.Sequence != latestReady[rev.DocumentID] {
			continue
		}
		doc, err := m.documents.Get(ctx, rev.DocumentID)
		if err != nil || doc.ApprovalState != domain.ApprovalApproved {
			continue
		}
		if q.Filter.Department != "" && doc.Department != q.Filter.Department {
			continue
		}
		if q.Filter.Scope.Kind == domain.ScopeOwned && doc.OwnerID != q.Filter.Scope.UserID {
			continue
		}
		out = append(out, &domain.Candidate{
			Chunk:            c,
			DocumentTitle:    doc.Title,
			RevisionSequence: rev.Sequence,
			Distance:         cosineDistance(q.Vector, c.Embedding),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		if out[i].Chunk.Ordinal != out[j].Chunk.Ordinal {
			return out[i].Chunk.Ordinal < out[j].Chunk.Ordinal
		}
		return out[i].Chunk.ID < out[j].Chunk.ID
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *MockSimilarityIndex) Ping(ctx context.Context) error {
	return nil
}

func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
