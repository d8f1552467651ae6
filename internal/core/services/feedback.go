package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

var _ driving.FeedbackService = (*FeedbackService)(nil)

// FeedbackServiceConfig holds dependencies for FeedbackService.
type FeedbackServiceConfig struct {
	Feedback driven.FeedbackStore
	Queries  driven.QueryStore
	Logger   *slog.Logger
}

// FeedbackService collects ratings of stored answers for admin review.
type FeedbackService struct {
	feedback driven.FeedbackStore
	queries  driven.QueryStore
	logger   *slog.Logger
}

// NewFeedbackService creates a new FeedbackService.
func NewFeedbackService(cfg FeedbackServiceConfig) *FeedbackService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedbackService{
		feedback: cfg.Feedback,
		queries:  cfg.Queries,
		logger:   logger.With("component", "feedback"),
	}
}

// Submit stores the principal's rating of a query they asked. Admins may
// rate any query.
func (s *FeedbackService) Submit(ctx context.Context, principal *domain.AuthContext, req driving.SubmitFeedbackRequest) (*domain.QueryFeedback, error) {
	rec, err := s.queries.Get(ctx, req.QueryID)
	if err != nil {
		return nil, err
	}
	if !principal.IsAdmin() && rec.UserID != principal.UserID {
		return nil, domain.ErrForbidden
	}

	fb := &domain.QueryFeedback{
		ID:               uuid.NewString(),
		QueryID:          rec.ID,
		UserID:           principal.UserID,
		Type:             req.Type,
		Rating:           req.Rating,
		Comment:          strings.TrimSpace(req.Comment),
		HallucinatedText: strings.TrimSpace(req.HallucinatedText),
		CreatedAt:        time.Now(),
	}
	if err := fb.Validate(); err != nil {
		return nil, err
	}

	if err := s.feedback.Create(ctx, fb); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("%w: feedback already submitted for this query", domain.ErrConflict)
		}
		return nil, fmt.Errorf("save feedback: %w", err)
	}

	s.logger.Info("feedback submitted",
		"feedback_id", fb.ID,
		"query_id", fb.QueryID,
		"feedback_type", fb.Type,
		"user_id", fb.UserID,
	)
	return fb, nil
}

// List returns feedback for review, newest first.
func (s *FeedbackService) List(ctx context.Context, principal *domain.AuthContext, req driving.ListFeedbackRequest) ([]*domain.QueryFeedback, error) {
	if !principal.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	if req.Type != "" && !req.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown feedback type %q", domain.ErrInvalidInput, req.Type)
	}

	limit, offset := pageBounds(req.Limit, req.Offset)
	items, err := s.feedback.List(ctx, driven.FeedbackFilter{
		Type:     req.Type,
		Reviewed: req.Reviewed,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	return items, nil
}

// Review marks feedback as read. Reviewing again moves the reviewer and
// time to the latest review.
func (s *FeedbackService) Review(ctx context.Context, principal *domain.AuthContext, id string) (*domain.QueryFeedback, error) {
	if !principal.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	if err := s.feedback.MarkReviewed(ctx, id, principal.UserID, time.Now()); err != nil {
		return nil, err
	}

	s.logger.Info("feedback reviewed", "feedback_id", id, "by", principal.UserID)
	return s.feedback.Get(ctx, id)
}
