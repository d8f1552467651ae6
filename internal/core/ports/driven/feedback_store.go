package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// FeedbackStore persists answer ratings (PostgreSQL)
type FeedbackStore interface {
	// Create inserts feedback. A second entry by the same user for the same
	// query fails with domain.ErrConflict.
	Create(ctx context.Context, fb *domain.QueryFeedback) error

	// Get retrieves feedback by ID
	Get(ctx context.Context, id string) (*domain.QueryFeedback, error)

	// List retrieves feedback matching filter, newest first
	List(ctx context.Context, filter FeedbackFilter) ([]*domain.QueryFeedback, error)

	// MarkReviewed records the reviewer and time
	MarkReviewed(ctx context.Context, id, reviewerID string, at time.Time) error
}

// FeedbackFilter narrows FeedbackStore.List. Zero values match everything.
type FeedbackFilter struct {
	Type     domain.FeedbackType
	Reviewed *bool
	Limit    int
	Offset   int
}
