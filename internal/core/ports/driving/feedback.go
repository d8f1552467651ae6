package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// SubmitFeedbackRequest rates one stored answer
type SubmitFeedbackRequest struct {
	QueryID          string              `json:"-"`
	Type             domain.FeedbackType `json:"feedback_type" example:"HELPFUL"`
	Rating           *int                `json:"rating,omitempty" example:"5"`
	Comment          string              `json:"comment,omitempty"`
	HallucinatedText string              `json:"hallucinated_text,omitempty"`
}

// ListFeedbackRequest filters the review queue. Zero values match everything.
type ListFeedbackRequest struct {
	Type     domain.FeedbackType
	Reviewed *bool
	Limit    int // default 50, capped at 200
	Offset   int
}

// FeedbackService collects answer ratings and lets admins review them
type FeedbackService interface {
	// Submit stores the principal's rating of a query they asked. A second
	// rating of the same query fails with domain.ErrConflict.
	Submit(ctx context.Context, principal *domain.AuthContext, req SubmitFeedbackRequest) (*domain.QueryFeedback, error)

	// List returns feedback for review (admin only)
	List(ctx context.Context, principal *domain.AuthContext, req ListFeedbackRequest) ([]*domain.QueryFeedback, error)

	// Review marks feedback as read by the principal (admin only)
	Review(ctx context.Context, principal *domain.AuthContext, id string) (*domain.QueryFeedback, error)
}
