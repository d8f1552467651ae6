package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// DocumentStore handles source document persistence (PostgreSQL)
type DocumentStore interface {
	// Save creates or updates a document
	Save(ctx context.Context, doc *domain.SourceDocument) error

	// Get retrieves a document by ID
	Get(ctx context.Context, id string) (*domain.SourceDocument, error)

	// SetApproval updates the approval state
	SetApproval(ctx context.Context, id string, state domain.ApprovalState) error

	// List retrieves documents matching filter, newest first
	List(ctx context.Context, filter DocumentFilter) ([]*domain.SourceDocument, error)
}

// DocumentFilter narrows DocumentStore.List. Zero values match everything.
type DocumentFilter struct {
	// VisibleTo keeps documents this user owns plus approved ones.
	// Empty means no visibility restriction.
	VisibleTo string

	ApprovalState domain.ApprovalState
	OwnerID       string
	Department    string // case-insensitive exact match
	Search        string // case-insensitive substring of title or description
	Limit         int
	Offset        int
}

// RevisionStore handles revision persistence and state transitions (PostgreSQL)
type RevisionStore interface {
	// Create inserts an Uploaded revision with the next sequence number for
	// its document and stores the file content alongside it.
	Create(ctx context.Context, rev *domain.DocumentRevision, content []byte) error

	// Get retrieves a revision by ID
	Get(ctx context.Context, id string) (*domain.DocumentRevision, error)

	// GetContent retrieves the uploaded bytes of a revision
	GetContent(ctx context.Context, id string) ([]byte, error)

	// ListByDocument retrieves all revisions of a document, newest first
	ListByDocument(ctx context.Context, documentID string) ([]*domain.DocumentRevision, error)

	// ApplyTransition persists t only if the revision is still in t.From().
	// Returns domain.ErrConflict if another writer moved it first.
	ApplyTransition(ctx context.Context, t domain.Transition) error

	// ListStale returns revisions in state whose last update is before olderThan.
	ListStale(ctx context.Context, state domain.ProcessingState, olderThan time.Time, limit int) ([]*domain.DocumentRevision, error)
}

// ChunkStore handles chunk persistence (PostgreSQL)
type ChunkStore interface {
	// ReplaceForRevision deletes the revision's chunks, inserts the new set
	// and applies the completing transition in one transaction.
	ReplaceForRevision(ctx context.Context, revisionID string, chunks []*domain.Chunk, complete domain.Transition) error

	// ListByRevision retrieves chunks ordered by ordinal
	ListByRevision(ctx context.Context, revisionID string) ([]*domain.Chunk, error)
}
