package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// QueryStore persists answered questions (PostgreSQL)
type QueryStore interface {
	// Save inserts a record with its citations in one transaction
	Save(ctx context.Context, rec *domain.QueryRecord) error

	// Get retrieves a record and its citations by ID
	Get(ctx context.Context, id string) (*domain.QueryRecord, error)

	// ListByUser retrieves one user's records, newest first. Citations are
	// not loaded.
	ListByUser(ctx context.Context, filter QueryFilter) ([]*domain.QueryRecord, error)
}

// QueryFilter narrows QueryStore.ListByUser.
type QueryFilter struct {
	UserID string
	Search string // case-insensitive substring of question or answer
	Limit  int
	Offset int
}
