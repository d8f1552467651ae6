package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// QueryService answers questions over approved documents
type QueryService interface {
	// Answer embeds the question, retrieves visible chunks and generates a
	// grounded answer. Exactly one QueryRecord is stored per completed attempt.
	Answer(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error)

	// Get returns a stored query to its asker or an admin
	Get(ctx context.Context, principal *domain.AuthContext, id string) (*domain.QueryRecord, error)

	// History lists the principal's own queries, newest first
	History(ctx context.Context, principal *domain.AuthContext, req QueryHistoryRequest) ([]*domain.QueryRecord, error)
}

// QueryHistoryRequest pages through a user's past questions
type QueryHistoryRequest struct {
	Search string
	Limit  int // default 50, capped at 200
	Offset int
}
