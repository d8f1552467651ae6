package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.RevisionStore = (*RevisionStore)(nil)

const revisionColumns = `id, document_id, sequence, file_type, file_name, byte_size, content_hash,
	state, error_message, chunk_count, embedding_model, uploaded_by, processed_at, created_at, updated_at`

// RevisionStore implements driven.RevisionStore using PostgreSQL
type RevisionStore struct {
	db *DB
}

// NewRevisionStore creates a new RevisionStore
func NewRevisionStore(db *DB) *RevisionStore {
	return &RevisionStore{db: db}
}

// Create inserts an Uploaded revision with the next sequence for its
// document. The parent row is locked so concurrent uploads serialize.
func (s *RevisionStore) Create(ctx context.Context, rev *domain.DocumentRevision, content []byte) error {
	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		var docID string
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM source_documents WHERE id = $1 FOR UPDATE`, rev.DocumentID,
		).Scan(&docID)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock document: %w", err)
		}

		insert := `
			INSERT INTO document_revisions (
				id, document_id, sequence, file_type, file_name, byte_size, content_hash,
				state, error_message, chunk_count, embedding_model, uploaded_by, created_at, updated_at
			)
			SELECT $1, $2, COALESCE(MAX(sequence), 0) + 1, $3, $4, $5, $6, $7, '', 0, '', $8, $9, $9
			FROM document_revisions
			WHERE document_id = $2
			RETURNING sequence
		`
		var sequence int
		err = tx.QueryRowContext(ctx, insert,
			rev.ID,
			rev.DocumentID,
			string(rev.FileType),
			rev.FileName,
			rev.ByteSize,
			rev.ContentHash,
			string(domain.StateUploaded),
			rev.UploadedBy,
			rev.CreatedAt,
		).Scan(&sequence)
		if err != nil {
			return fmt.Errorf("insert revision: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO revision_files (revision_id, content) VALUES ($1, $2)`, rev.ID, content,
		); err != nil {
			return fmt.Errorf("insert revision file: %w", err)
		}

		rev.Sequence = sequence
		rev.State = domain.StateUploaded
		rev.UpdatedAt = rev.CreatedAt
		return nil
	})
}

// Get retrieves a revision by ID
func (s *RevisionStore) Get(ctx context.Context, id string) (*domain.DocumentRevision, error) {
	query := `SELECT ` + revisionColumns + ` FROM document_revisions WHERE id = $1`

	rev, err := scanRevision(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get revision: %w", err)
	}
	return rev, nil
}

// GetContent retrieves the uploaded bytes of a revision
func (s *RevisionStore) GetContent(ctx context.Context, id string) ([]byte, error) {
	var content []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT content FROM revision_files WHERE revision_id = $1`, id,
	).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get revision content: %w", err)
	}
	return content, nil
}

// ListByDocument retrieves all revisions of a document, newest first
func (s *RevisionStore) ListByDocument(ctx context.Context, documentID string) ([]*domain.DocumentRevision, error) {
	query := `SELECT ` + revisionColumns + `
		FROM document_revisions
		WHERE document_id = $1
		ORDER BY sequence DESC`

	rows, err := s.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	defer rows.Close()

	return scanRevisions(rows)
}

// ApplyTransition persists t if the revision is still in t.From()
func (s *RevisionStore) ApplyTransition(ctx context.Context, t domain.Transition) error {
	return applyTransition(ctx, s.db, t)
}

// ListStale returns revisions in state last updated before olderThan
func (s *RevisionStore) ListStale(ctx context.Context, state domain.ProcessingState, olderThan time.Time, limit int) ([]*domain.DocumentRevision, error) {
	query := `SELECT ` + revisionColumns + `
		FROM document_revisions
		WHERE state = $1 AND updated_at < $2
		ORDER BY updated_at ASC
		LIMIT $3`

	rows, err := s.db.QueryContext(ctx, query, string(state), olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale revisions: %w", err)
	}
	defer rows.Close()

	return scanRevisions(rows)
}

// applyTransition runs the conditional state UPDATE on db or an open tx.
// Zero rows means the revision is gone or another writer moved it first.
func applyTransition(ctx context.Context, db execer, t domain.Transition) error {
	if t.IsZero() {
		return fmt.Errorf("%w: empty transition", domain.ErrInvalidTransition)
	}

	query := `
		UPDATE document_revisions
		SET state = $1,
			error_message = $2,
			updated_at = $3,
			chunk_count = CASE WHEN $1 = 'READY' THEN $4 ELSE chunk_count END,
			embedding_model = CASE WHEN $1 = 'READY' THEN $5 ELSE embedding_model END,
			processed_at = CASE WHEN $1 = 'READY' THEN $3 ELSE processed_at END
		WHERE id = $6 AND state = $7
	`

	result, err := db.ExecContext(ctx, query,
		string(t.To()),
		t.ErrorMessage(),
		t.At(),
		t.ChunkCount(),
		t.EmbeddingModel(),
		t.RevisionID(),
		string(t.From()),
	)
	if err != nil {
		return fmt.Errorf("apply transition %s: %w", t, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 1 {
		return nil
	}

	var exists bool
	if err := db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM document_revisions WHERE id = $1)`, t.RevisionID(),
	).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return domain.ErrNotFound
	}
	return fmt.Errorf("%w: %s", domain.ErrConflict, t)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRevision(row rowScanner) (*domain.DocumentRevision, error) {
	var rev domain.DocumentRevision
	var processedAt sql.NullTime

	err := row.Scan(
		&rev.ID,
		&rev.DocumentID,
		&rev.Sequence,
		&rev.FileType,
		&rev.FileName,
		&rev.ByteSize,
		&rev.ContentHash,
		&rev.State,
		&rev.ErrorMessage,
		&rev.ChunkCount,
		&rev.EmbeddingModel,
		&rev.UploadedBy,
		&processedAt,
		&rev.CreatedAt,
		&rev.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rev.ProcessedAt = TimePtr(processedAt)
	return &rev, nil
}

func scanRevisions(rows *sql.Rows) ([]*domain.DocumentRevision, error) {
	var revisions []*domain.DocumentRevision
	for rows.Next() {
		rev, err := scanRevision(rows)
		if err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		revisions = append(revisions, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return revisions, nil
}
