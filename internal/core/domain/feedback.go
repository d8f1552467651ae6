package domain

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// Length limits on free-text feedback fields, in characters.
const (
	MaxFeedbackComment  = 1000
	MaxHallucinatedText = 2000
)

// FeedbackType classifies a user's verdict on an answer.
type FeedbackType string

const (
	FeedbackHelpful       FeedbackType = "HELPFUL"
	FeedbackNotHelpful    FeedbackType = "NOT_HELPFUL"
	FeedbackHallucination FeedbackType = "HALLUCINATION"
	FeedbackMissingInfo   FeedbackType = "MISSING_INFO"
	FeedbackWrongSource   FeedbackType = "WRONG_SOURCE"
)

// Valid reports whether t is a known feedback type.
func (t FeedbackType) Valid() bool {
	switch t {
	case FeedbackHelpful, FeedbackNotHelpful, FeedbackHallucination, FeedbackMissingInfo, FeedbackWrongSource:
		return true
	}
	return false
}

// QueryFeedback is one user's rating of one stored answer. A user rates a
// query at most once.
type QueryFeedback struct {
	ID               string       `json:"id"`
	QueryID          string       `json:"query_id"`
	UserID           string       `json:"user_id"`
	Type             FeedbackType `json:"feedback_type"`
	Rating           *int         `json:"rating,omitempty"`
	Comment          string       `json:"comment,omitempty"`
	HallucinatedText string       `json:"hallucinated_text,omitempty"`
	Reviewed         bool         `json:"is_reviewed"`
	ReviewedBy       string       `json:"reviewed_by,omitempty"`
	ReviewedAt       *time.Time   `json:"reviewed_at,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
}

// Validate checks the fields a user supplies.
func (f *QueryFeedback) Validate() error {
	if !f.Type.Valid() {
		return fmt.Errorf("%w: unknown feedback type %q", ErrInvalidInput, f.Type)
	}
	if f.Rating != nil && (*f.Rating < 1 || *f.Rating > 5) {
		return fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidInput)
	}
	if utf8.RuneCountInString(f.Comment) > MaxFeedbackComment {
		return fmt.Errorf("%w: comment exceeds %d characters", ErrInvalidInput, MaxFeedbackComment)
	}
	if utf8.RuneCountInString(f.HallucinatedText) > MaxHallucinatedText {
		return fmt.Errorf("%w: hallucinated text exceeds %d characters", ErrInvalidInput, MaxHallucinatedText)
	}
	return nil
}

// MarkReviewed records that reviewerID has read the feedback.
func (f *QueryFeedback) MarkReviewed(reviewerID string, at time.Time) {
	f.Reviewed = true
	f.ReviewedBy = reviewerID
	f.ReviewedAt = &at
}
