package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// CreateDocumentRequest describes a new source document
type CreateDocumentRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Department  string `json:"department,omitempty"`
}

// UploadRevisionRequest carries one file for a document
type UploadRevisionRequest struct {
	DocumentID string
	FileType   domain.FileType
	FileName   string
	Content    []byte
}

// ListDocumentsRequest filters the documents visible to a principal.
// Zero values match everything.
type ListDocumentsRequest struct {
	ApprovalState domain.ApprovalState
	OwnerID       string
	Department    string
	Search        string
	Limit         int // default 50, capped at 200
	Offset        int
}

// DocumentService manages documents and their revisions
type DocumentService interface {
	// Create stores a new DRAFT document owned by the principal
	Create(ctx context.Context, principal *domain.AuthContext, req CreateDocumentRequest) (*domain.SourceDocument, error)

	// List retrieves the documents visible to the principal, newest first:
	// their own and approved ones, or every document for an admin
	List(ctx context.Context, principal *domain.AuthContext, req ListDocumentsRequest) ([]*domain.SourceDocument, error)

	// Get retrieves a document visible to the principal
	Get(ctx context.Context, principal *domain.AuthContext, id string) (*domain.SourceDocument, error)

	// SetApproval changes the approval state (admin or owner)
	SetApproval(ctx context.Context, principal *domain.AuthContext, id string, state domain.ApprovalState) (*domain.SourceDocument, error)

	// Upload stores a new UPLOADED revision and schedules its ingestion
	Upload(ctx context.Context, principal *domain.AuthContext, req UploadRevisionRequest) (*domain.DocumentRevision, error)

	// GetRevision retrieves a revision for status polling
	GetRevision(ctx context.Context, principal *domain.AuthContext, id string) (*domain.DocumentRevision, error)

	// ListRevisions retrieves all revisions of a document, newest first
	ListRevisions(ctx context.Context, principal *domain.AuthContext, documentID string) ([]*domain.DocumentRevision, error)

	// ListChunks retrieves the chunks of a visible revision, in order
	ListChunks(ctx context.Context, principal *domain.AuthContext, revisionID string) ([]*domain.Chunk, error)

	// Reprocess schedules another ingestion attempt for a FAILED revision
	Reprocess(ctx context.Context, principal *domain.AuthContext, revisionID string) (*domain.DocumentRevision, error)
}
