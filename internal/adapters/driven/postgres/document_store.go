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

var _ driven.DocumentStore = (*DocumentStore)(nil)

const documentColumns = `id, title, description, owner_id, department, approval_state, created_at, updated_at`

// DocumentStore keeps source documents. owner_id and created_at are fixed
// at first insert; later saves leave them alone.
type DocumentStore struct {
	db *DB
}

func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

func (s *DocumentStore) Save(ctx context.Context, doc *domain.SourceDocument) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO source_documents (`+documentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			title          = EXCLUDED.title,
			description    = EXCLUDED.description,
			department     = EXCLUDED.department,
			approval_state = EXCLUDED.approval_state,
			updated_at     = EXCLUDED.updated_at`,
		doc.ID, doc.Title, doc.Description, doc.OwnerID, doc.Department,
		string(doc.ApprovalState), doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save document %s: %w", doc.ID, err)
	}
	return nil
}

func (s *DocumentStore) Get(ctx context.Context, id string) (*domain.SourceDocument, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM source_documents WHERE id = $1`, id)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: document %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", id, err)
	}
	return doc, nil
}

// List retrieves documents matching filter, newest first
func (s *DocumentStore) List(ctx context.Context, filter driven.DocumentFilter) ([]*domain.SourceDocument, error) {
	query, args := listDocumentsQuery(filter)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []*domain.SourceDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// listDocumentsQuery renders the filter as numbered placeholders.
func listDocumentsQuery(filter driven.DocumentFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.VisibleTo != "" {
		where = append(where, "(owner_id = "+arg(filter.VisibleTo)+" OR approval_state = 'APPROVED')")
	}
	if filter.ApprovalState != "" {
		where = append(where, "approval_state = "+arg(string(filter.ApprovalState)))
	}
	if filter.OwnerID != "" {
		where = append(where, "owner_id = "+arg(filter.OwnerID))
	}
	if filter.Department != "" {
		where = append(where, "LOWER(department) = LOWER("+arg(filter.Department)+")")
	}
	if filter.Search != "" {
		p := arg(likePattern(filter.Search))
		where = append(where, "(title ILIKE "+p+" OR description ILIKE "+p+")")
	}

	var b strings.Builder
	b.WriteString("SELECT " + documentColumns + " FROM source_documents")
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY created_at DESC, id DESC")
	writePage(&b, arg, filter.Limit, filter.Offset)
	return b.String(), args
}

func scanDocument(row rowScanner) (*domain.SourceDocument, error) {
	var d domain.SourceDocument
	err := row.Scan(&d.ID, &d.Title, &d.Description, &d.OwnerID, &d.Department,
		&d.ApprovalState, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *DocumentStore) SetApproval(ctx context.Context, id string, state domain.ApprovalState) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE source_documents SET approval_state = $2, updated_at = $3 WHERE id = $1`,
		id, string(state), time.Now())
	if err != nil {
		return fmt.Errorf("set approval on %s: %w", id, err)
	}
	return requireRow(res)
}

// likePattern matches s anywhere in an ILIKE operand, treating its
// wildcards literally.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// writePage appends LIMIT and OFFSET when set.
func writePage(b *strings.Builder, arg func(any) string, limit, offset int) {
	if limit > 0 {
		b.WriteString(" LIMIT " + arg(limit))
	}
	if offset > 0 {
		b.WriteString(" OFFSET " + arg(offset))
	}
}

// requireRow turns a write that matched no row into ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	switch {
	case err != nil:
		return err
	case n == 0:
		return domain.ErrNotFound
	}
	return nil
}
