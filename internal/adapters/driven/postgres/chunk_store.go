package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ChunkStore = (*ChunkStore)(nil)

// ChunkStore implements driven.ChunkStore using PostgreSQL.
// Embeddings are written as pgvector values; reads for similarity search
// go through the pgvector index adapter.
type ChunkStore struct {
	db *DB
}

// NewChunkStore creates a new ChunkStore
func NewChunkStore(db *DB) *ChunkStore {
	return &ChunkStore{db: db}
}

// ReplaceForRevision swaps the revision's chunk set and completes it in one
// transaction. Readers see either the old set or the new set with READY.
func (s *ChunkStore) ReplaceForRevision(ctx context.Context, revisionID string, chunks []*domain.Chunk, complete domain.Transition) error {
	if complete.RevisionID() != revisionID {
		return fmt.Errorf("%w: transition for %s applied to %s", domain.ErrInvalidInput, complete.RevisionID(), revisionID)
	}

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		if err := applyTransition(ctx, tx, complete); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE revision_id = $1`, revisionID); err != nil {
			return fmt.Errorf("delete chunks: %w", err)
		}

		if len(chunks) == 0 {
			return nil
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks (id, revision_id, document_id, ordinal, text, embedding, metadata, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`)
		if err != nil {
			return fmt.Errorf("prepare chunk insert: %w", err)
		}
		defer stmt.Close()

		for _, c := range chunks {
			metadataJSON, err := json.Marshal(c.Metadata)
			if err != nil {
				return fmt.Errorf("marshal chunk metadata: %w", err)
			}
			if c.Metadata == nil {
				metadataJSON = []byte("{}")
			}

			_, err = stmt.ExecContext(ctx,
				c.ID,
				revisionID,
				c.DocumentID,
				c.Ordinal,
				c.Text,
				pgvector.NewVector(c.Embedding),
				metadataJSON,
				c.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("insert chunk %d: %w", c.Ordinal, err)
			}
		}
		return nil
	})
}

// ListByRevision retrieves chunks ordered by ordinal
func (s *ChunkStore) ListByRevision(ctx context.Context, revisionID string) ([]*domain.Chunk, error) {
	query := `
		SELECT id, revision_id, document_id, ordinal, text, embedding, metadata, created_at
		FROM chunks
		WHERE revision_id = $1
		ORDER BY ordinal ASC
	`

	rows, err := s.db.QueryContext(ctx, query, revisionID)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()

	var chunks []*domain.Chunk
	for rows.Next() {
		var c domain.Chunk
		var embedding pgvector.Vector
		var metadataJSON []byte

		if err := rows.Scan(
			&c.ID,
			&c.RevisionID,
			&c.DocumentID,
			&c.Ordinal,
			&c.Text,
			&embedding,
			&metadataJSON,
			&c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}

		c.Embedding = embedding.Slice()
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &c.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal chunk metadata: %w", err)
			}
		}
		chunks = append(chunks, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return chunks, nil
}
