// Package pgvector implements the similarity read path over the chunks
// table using pgx and the pgvector cosine distance operator.
package pgvector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

var _ driven.SimilarityIndex = (*Index)(nil)

// searchSQL ranks chunks of the latest READY revision of each approved
// document. Empty department or owner arguments disable that filter.
const searchSQL = `
	WITH latest AS (
		SELECT DISTINCT ON (r.document_id) r.id, r.document_id, r.sequence
		FROM document_revisions r
		WHERE r.state = 'READY'
		ORDER BY r.document_id, r.sequence DESC
	)
	SELECT c.id, c.revision_id, c.document_id, c.ordinal, c.text, c.metadata, c.created_at,
		   d.title, l.sequence, c.embedding <=> $1::vector AS distance
	FROM chunks c
	JOIN latest l ON l.id = c.revision_id
	JOIN source_documents d ON d.id = c.document_id
	WHERE d.approval_state = 'APPROVED'
	  AND ($2::text = '' OR d.department = $2::text)
	  AND ($3::text = '' OR d.owner_id = $3::text)
	ORDER BY distance ASC, c.ordinal ASC, c.id ASC
	LIMIT $4
`

// Index implements driven.SimilarityIndex on a pgx pool.
type Index struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Connect opens a pgx pool for the similarity read path.
func Connect(ctx context.Context, url string, logger *slog.Logger) (*Index, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect similarity index: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping similarity index: %w", err)
	}
	return NewIndex(pool, logger), nil
}

// NewIndex wraps an existing pool.
func NewIndex(pool *pgxpool.Pool, logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.Default()
	}
	return &Index{pool: pool, logger: logger.With("component", "pgvector-index")}
}

// searchArgs maps a query to the positional arguments of searchSQL.
func searchArgs(q domain.SearchQuery) ([]any, error) {
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", domain.ErrInvalidInput)
	}
	if q.Limit <= 0 {
		return nil, fmt.Errorf("%w: search limit must be positive", domain.ErrInvalidInput)
	}

	var owner string
	switch q.Filter.Scope.Kind {
	case domain.ScopeOwned:
		if q.Filter.Scope.UserID == "" {
			return nil, fmt.Errorf("%w: owned scope without user", domain.ErrInvalidInput)
		}
		owner = q.Filter.Scope.UserID
	case domain.ScopeApproved, domain.ScopeAll:
	default:
		return nil, fmt.Errorf("%w: unknown scope %q", domain.ErrInvalidInput, q.Filter.Scope.Kind)
	}

	return []any{pgvector.NewVector(q.Vector), q.Filter.Department, owner, q.Limit}, nil
}

// Search returns candidates ordered by cosine distance, then ordinal.
func (i *Index) Search(ctx context.Context, q domain.SearchQuery) ([]*domain.Candidate, error) {
	args, err := searchArgs(q)
	if err != nil {
		return nil, err
	}

	rows, err := i.pool.Query(ctx, searchSQL, args...)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var out []*domain.Candidate
	for rows.Next() {
		var (
			chunk    domain.Chunk
			metadata []byte
			cand     = domain.Candidate{Chunk: &chunk}
		)
		if err := rows.Scan(
			&chunk.ID,
			&chunk.RevisionID,
			&chunk.DocumentID,
			&chunk.Ordinal,
			&chunk.Text,
			&metadata,
			&chunk.CreatedAt,
			&cand.DocumentTitle,
			&cand.RevisionSequence,
			&cand.Distance,
		); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &chunk.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal chunk metadata: %w", err)
			}
		}
		out = append(out, &cand)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}

	i.logger.Debug("similarity search", "limit", q.Limit, "candidates", len(out))
	return out, nil
}

// Ping checks the pool
func (i *Index) Ping(ctx context.Context) error {
	return i.pool.Ping(ctx)
}

// Close releases the pool
func (i *Index) Close() {
	i.pool.Close()
}
