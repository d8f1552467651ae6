package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// SimilarityIndex answers nearest-neighbour queries over chunk embeddings.
type SimilarityIndex interface {
	// Search returns up to q.Limit candidates visible under q.Filter, ordered
	// by cosine distance ascending, then chunk ordinal ascending.
	Search(ctx context.Context, q domain.SearchQuery) ([]*domain.Candidate, error)

	// Ping checks the index backend
	Ping(ctx context.Context) error
}
