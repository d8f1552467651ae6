package services

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// DefaultMaxUploadBytes caps a single revision upload.
const DefaultMaxUploadBytes = 10 << 20

// Ensure documentService implements DocumentService
var _ driving.DocumentService = (*documentService)(nil)

// DocumentServiceConfig holds dependencies for the document service.
type DocumentServiceConfig struct {
	Documents      driven.DocumentStore
	Revisions      driven.RevisionStore
	Chunks         driven.ChunkStore
	TaskQueue      driven.TaskQueue
	MaxUploadBytes int64 // default: 10 MiB
	MaxAttempts    int   // Ingestion attempts per revision task (default: 3)
	Logger         *slog.Logger

	// FileTypes are the types the extractors can read. Uploads of any other
	// type are refused. Default: domain.SupportedFileTypes.
	FileTypes []domain.FileType
}

// documentService implements the DocumentService interface
type documentService struct {
	documents      driven.DocumentStore
	revisions      driven.RevisionStore
	chunks         driven.ChunkStore
	taskQueue      driven.TaskQueue
	fileTypes      []domain.FileType
	maxUploadBytes int64
	maxAttempts    int
	logger         *slog.Logger
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(cfg DocumentServiceConfig) driving.DocumentService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxBytes := cfg.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	fileTypes := cfg.FileTypes
	if len(fileTypes) == 0 {
		fileTypes = domain.SupportedFileTypes
	}

	return &documentService{
		documents:      cfg.Documents,
		revisions:      cfg.Revisions,
		chunks:         cfg.Chunks,
		taskQueue:      cfg.TaskQueue,
		fileTypes:      fileTypes,
		maxUploadBytes: maxBytes,
		maxAttempts:    cfg.MaxAttempts,
		logger:         logger.With("component", "documents"),
	}
}

// Create stores a new DRAFT document owned by the principal
func (s *documentService) Create(ctx context.Context, principal *domain.AuthContext, req driving.CreateDocumentRequest) (*domain.SourceDocument, error) {
	if !principal.CanUpload() {
		return nil, domain.ErrForbidden
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}

	department := strings.TrimSpace(req.Department)
	if department == "" {
		department = principal.Department
	}

	now := time.Now()
	doc := &domain.SourceDocument{
		ID:            uuid.NewString(),
		Title:         title,
		Description:   strings.TrimSpace(req.Description),
		OwnerID:       principal.UserID,
		Department:    department,
		ApprovalState: domain.ApprovalDraft,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.documents.Save(ctx, doc); err != nil {
		return nil, err
	}

	s.logger.Info("document created", "document_id", doc.ID, "owner_id", doc.OwnerID)
	return doc, nil
}

// List retrieves the documents visible to the principal, newest first.
func (s *documentService) List(ctx context.Context, principal *domain.AuthContext, req driving.ListDocumentsRequest) ([]*domain.SourceDocument, error) {
	if req.ApprovalState != "" && !req.ApprovalState.Valid() {
		return nil, fmt.Errorf("%w: unknown approval state %q", domain.ErrInvalidInput, req.ApprovalState)
	}

	limit, offset := pageBounds(req.Limit, req.Offset)
	filter := driven.DocumentFilter{
		ApprovalState: req.ApprovalState,
		OwnerID:       strings.TrimSpace(req.OwnerID),
		Department:    strings.TrimSpace(req.Department),
		Search:        strings.TrimSpace(req.Search),
		Limit:         limit,
		Offset:        offset,
	}
	if !principal.IsAdmin() {
		filter.VisibleTo = principal.UserID
	}

	docs, err := s.documents.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// Get retrieves a document. Unapproved documents are only visible to their
// owner and admins; everyone else gets ErrNotFound.
func (s *documentService) Get(ctx context.Context, principal *domain.AuthContext, id string) (*domain.SourceDocument, error) {
	doc, err := s.documents.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(principal, doc) {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

// SetApproval changes the approval state
func (s *documentService) SetApproval(ctx context.Context, principal *domain.AuthContext, id string, state domain.ApprovalState) (*domain.SourceDocument, error) {
	if !state.Valid() {
		return nil, fmt.Errorf("%w: unknown approval state %q", domain.ErrInvalidInput, state)
	}

	doc, err := s.Get(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if !principal.CanManage(doc) {
		return nil, domain.ErrForbidden
	}

	if err := s.documents.SetApproval(ctx, id, state); err != nil {
		return nil, err
	}

	s.logger.Info("document approval changed",
		"document_id", id,
		"from", doc.ApprovalState,
		"to", state,
		"by", principal.UserID,
	)
	return s.documents.Get(ctx, id)
}

// Upload stores a new UPLOADED revision and schedules its ingestion.
// If scheduling fails the revision is kept; the reaper later expires it
// and it can be reprocessed.
func (s *documentService) Upload(ctx context.Context, principal *domain.AuthContext, req driving.UploadRevisionRequest) (*domain.DocumentRevision, error) {
	doc, err := s.Get(ctx, principal, req.DocumentID)
	if err != nil {
		return nil, err
	}
	if !principal.CanManage(doc) {
		return nil, domain.ErrForbidden
	}

	if !slices.Contains(s.fileTypes, req.FileType) {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, req.FileType)
	}
	if len(req.Content) == 0 {
		return nil, fmt.Errorf("%w: file is empty", domain.ErrInvalidInput)
	}
	if int64(len(req.Content)) > s.maxUploadBytes {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", domain.ErrInvalidInput, s.maxUploadBytes)
	}

	sum := blake2b.Sum256(req.Content)
	now := time.Now()
	rev := &domain.DocumentRevision{
		ID:          uuid.NewString(),
		DocumentID:  doc.ID,
		FileType:    req.FileType,
		FileName:    req.FileName,
		ByteSize:    int64(len(req.Content)),
		ContentHash: hex.EncodeToString(sum[:]),
		State:       domain.StateUploaded,
		UploadedBy:  principal.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.revisions.Create(ctx, rev, req.Content); err != nil {
		return nil, err
	}

	logger := s.logger.With("document_id", doc.ID, "revision_id", rev.ID)
	logger.Info("revision uploaded", "sequence", rev.Sequence, "file_type", rev.FileType, "bytes", rev.ByteSize)

	if err := s.taskQueue.Enqueue(ctx, s.processTask(rev.ID)); err != nil {
		logger.Error("failed to enqueue revision processing", "error", err)
	}

	return rev, nil
}

// GetRevision retrieves a revision of a visible document
func (s *documentService) GetRevision(ctx context.Context, principal *domain.AuthContext, id string) (*domain.DocumentRevision, error) {
	rev, err := s.revisions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, principal, rev.DocumentID); err != nil {
		return nil, err
	}
	return rev, nil
}

// ListRevisions retrieves all revisions of a visible document
func (s *documentService) ListRevisions(ctx context.Context, principal *domain.AuthContext, documentID string) ([]*domain.DocumentRevision, error) {
	if _, err := s.Get(ctx, principal, documentID); err != nil {
		return nil, err
	}
	return s.revisions.ListByDocument(ctx, documentID)
}

// ListChunks retrieves the chunks of a revision of a visible document
func (s *documentService) ListChunks(ctx context.Context, principal *domain.AuthContext, revisionID string) ([]*domain.Chunk, error) {
	if _, err := s.GetRevision(ctx, principal, revisionID); err != nil {
		return nil, err
	}
	return s.chunks.ListByRevision(ctx, revisionID)
}

// Reprocess schedules another ingestion attempt for a FAILED revision
func (s *documentService) Reprocess(ctx context.Context, principal *domain.AuthContext, revisionID string) (*domain.DocumentRevision, error) {
	rev, err := s.revisions.Get(ctx, revisionID)
	if err != nil {
		return nil, err
	}
	doc, err := s.Get(ctx, principal, rev.DocumentID)
	if err != nil {
		return nil, err
	}
	if !principal.CanManage(doc) {
		return nil, domain.ErrForbidden
	}
	if _, err := rev.Failed(); err != nil {
		return nil, err
	}

	if err := s.taskQueue.Enqueue(ctx, s.processTask(rev.ID)); err != nil {
		return nil, fmt.Errorf("%w: enqueue reprocess: %w", domain.ErrServiceUnavailable, err)
	}

	s.logger.Info("revision reprocess requested", "revision_id", rev.ID, "by", principal.UserID)
	return rev, nil
}

func canView(principal *domain.AuthContext, doc *domain.SourceDocument) bool {
	return doc.ApprovalState == domain.ApprovalApproved ||
		principal.IsAdmin() ||
		doc.OwnerID == principal.UserID
}

func (s *documentService) processTask(revisionID string) *domain.Task {
	task := domain.NewProcessRevisionTask(revisionID)
	if s.maxAttempts > 0 {
		task.MaxAttempts = s.maxAttempts
	}
	return task
}
