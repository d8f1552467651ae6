package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.QueryStore = (*QueryStore)(nil)

const queryRecordColumns = `id, user_id, question, answer, context_text, department, tokens_used,
	latency_ms, success, chunks_retrieved, avg_similarity, created_at`

// QueryStore implements driven.QueryStore using PostgreSQL
type QueryStore struct {
	db *DB
}

// NewQueryStore creates a new QueryStore
func NewQueryStore(db *DB) *QueryStore {
	return &QueryStore{db: db}
}

// Save inserts a record with its citations in one transaction
func (s *QueryStore) Save(ctx context.Context, rec *domain.QueryRecord) error {
	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO query_records (
				id, user_id, question, answer, context_text, department, tokens_used,
				latency_ms, success, chunks_retrieved, avg_similarity, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`,
			rec.ID,
			rec.UserID,
			rec.Question,
			rec.Answer,
			rec.ContextText,
			rec.Department,
			rec.TokensUsed,
			rec.LatencyMs,
			rec.Success,
			rec.ChunksRetrieved,
			rec.AvgSimilarity,
			rec.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert query record: %w", err)
		}

		for _, c := range rec.Citations {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO query_citations (
					query_id, chunk_id, document_id, document_title, revision_sequence, score, rank
				) VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, rec.ID, c.ChunkID, c.DocumentID, c.DocumentTitle, c.RevisionSequence, c.Score, c.Rank)
			if err != nil {
				return fmt.Errorf("insert citation %d: %w", c.Rank, err)
			}
		}
		return nil
	})
}

// Get retrieves a record and its citations by ID
func (s *QueryStore) Get(ctx context.Context, id string) (*domain.QueryRecord, error) {
	rec, err := scanQueryRecord(s.db.QueryRowContext(ctx,
		`SELECT `+queryRecordColumns+` FROM query_records WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get query record: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.chunk_id, c.document_id, c.document_title, c.revision_sequence, c.score, c.rank,
			   COALESCE(ch.text, '')
		FROM query_citations c
		LEFT JOIN chunks ch ON ch.id = c.chunk_id
		WHERE c.query_id = $1
		ORDER BY c.rank ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("list citations: %w", err)
	}
	defer rows.Close()

	rec.Citations = []domain.Citation{}
	for rows.Next() {
		var c domain.Citation
		if err := rows.Scan(&c.ChunkID, &c.DocumentID, &c.DocumentTitle, &c.RevisionSequence, &c.Score, &c.Rank, &c.Text); err != nil {
			return nil, fmt.Errorf("scan citation: %w", err)
		}
		rec.Citations = append(rec.Citations, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rec, nil
}

// ListByUser retrieves one user's records, newest first, without citations
func (s *QueryStore) ListByUser(ctx context.Context, filter driven.QueryFilter) ([]*domain.QueryRecord, error) {
	query, args := listQueriesQuery(filter)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list query records: %w", err)
	}
	defer rows.Close()

	var records []*domain.QueryRecord
	for rows.Next() {
		rec, err := scanQueryRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan query record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// listQueriesQuery renders the filter as numbered placeholders.
func listQueriesQuery(filter driven.QueryFilter) (string, []any) {
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	var b strings.Builder
	b.WriteString("SELECT " + queryRecordColumns + " FROM query_records WHERE user_id = " + arg(filter.UserID))
	if filter.Search != "" {
		p := arg(likePattern(filter.Search))
		b.WriteString(" AND (question ILIKE " + p + " OR answer ILIKE " + p + ")")
	}
	b.WriteString(" ORDER BY created_at DESC, id DESC")
	writePage(&b, arg, filter.Limit, filter.Offset)
	return b.String(), args
}

func scanQueryRecord(row rowScanner) (*domain.QueryRecord, error) {
	var rec domain.QueryRecord
	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.Question,
		&rec.Answer,
		&rec.ContextText,
		&rec.Department,
		&rec.TokensUsed,
		&rec.LatencyMs,
		&rec.Success,
		&rec.ChunksRetrieved,
		&rec.AvgSimilarity,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
