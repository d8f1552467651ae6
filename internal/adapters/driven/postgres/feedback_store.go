package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

var _ driven.FeedbackStore = (*FeedbackStore)(nil)

const feedbackColumns = `id, query_id, user_id, feedback_type, rating, comment, hallucinated_text,
	reviewed, reviewed_by, reviewed_at, created_at`

// FeedbackStore keeps answer ratings. The (query_id, user_id) unique key
// limits each user to one rating per query.
type FeedbackStore struct {
	db *DB
}

func NewFeedbackStore(db *DB) *FeedbackStore {
	return &FeedbackStore{db: db}
}

func (s *FeedbackStore) Create(ctx context.Context, fb *domain.QueryFeedback) error {
	var rating sql.NullInt64
	if fb.Rating != nil {
		rating = sql.NullInt64{Int64: int64(*fb.Rating), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO query_feedback (`+feedbackColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, '', NULL, $8)
		ON CONFLICT (query_id, user_id) DO NOTHING`,
		fb.ID, fb.QueryID, fb.UserID, string(fb.Type), rating,
		fb.Comment, fb.HallucinatedText, fb.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	if err := requireRow(res); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: feedback for query %s by %s exists", domain.ErrConflict, fb.QueryID, fb.UserID)
		}
		return err
	}
	return nil
}

func (s *FeedbackStore) Get(ctx context.Context, id string) (*domain.QueryFeedback, error) {
	fb, err := scanFeedback(s.db.QueryRowContext(ctx,
		`SELECT `+feedbackColumns+` FROM query_feedback WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: feedback %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get feedback %s: %w", id, err)
	}
	return fb, nil
}

func (s *FeedbackStore) List(ctx context.Context, filter driven.FeedbackFilter) ([]*domain.QueryFeedback, error) {
	query, args := listFeedbackQuery(filter)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	defer rows.Close()

	var out []*domain.QueryFeedback
	for rows.Next() {
		fb, err := scanFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		out = append(out, fb)
	}
	return out, rows.Err()
}

func (s *FeedbackStore) MarkReviewed(ctx context.Context, id, reviewerID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE query_feedback SET reviewed = TRUE, reviewed_by = $2, reviewed_at = $3 WHERE id = $1`,
		id, reviewerID, at)
	if err != nil {
		return fmt.Errorf("review feedback %s: %w", id, err)
	}
	return requireRow(res)
}

// listFeedbackQuery renders the filter as numbered placeholders, newest first.
func listFeedbackQuery(filter driven.FeedbackFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Type != "" {
		where = append(where, "feedback_type = "+arg(string(filter.Type)))
	}
	if filter.Reviewed != nil {
		where = append(where, "reviewed = "+arg(*filter.Reviewed))
	}

	var b strings.Builder
	b.WriteString("SELECT " + feedbackColumns + " FROM query_feedback")
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY created_at DESC, id DESC")
	writePage(&b, arg, filter.Limit, filter.Offset)
	return b.String(), args
}

func scanFeedback(row rowScanner) (*domain.QueryFeedback, error) {
	var (
		fb         domain.QueryFeedback
		rating     sql.NullInt64
		reviewedAt sql.NullTime
	)
	err := row.Scan(&fb.ID, &fb.QueryID, &fb.UserID, &fb.Type, &rating, &fb.Comment,
		&fb.HallucinatedText, &fb.Reviewed, &fb.ReviewedBy, &reviewedAt, &fb.CreatedAt)
	if err != nil {
		return nil, err
	}
	if rating.Valid {
		r := int(rating.Int64)
		fb.Rating = &r
	}
	if reviewedAt.Valid {
		fb.ReviewedAt = &reviewedAt.Time
	}
	return &fb, nil
}
