package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Verify interface compliance
var _ driving.IngestionService = (*IngestionCoordinator)(nil)

// IngestionCoordinator drives one revision through the ingestion pipeline:
//  1. Load the revision
//  2. Claim it (Uploaded or Failed -> Processing)
//  3. Load the uploaded bytes
//  4. Extract text
//  5. Chunk
//  6. Embed
//  7. Replace chunks and complete the revision in one transaction
//
// Any failure after the claim moves the revision to Failed. No database
// transaction is held across a provider call.
type IngestionCoordinator struct {
	revisions        driven.RevisionStore
	chunks           driven.ChunkStore
	extractors       driven.ExtractorRegistry
	chunker          driven.Chunker
	embedder         *EmbeddingClient
	minContentLength int
	logger           *slog.Logger
}

// IngestionCoordinatorConfig holds dependencies for IngestionCoordinator.
type IngestionCoordinatorConfig struct {
	Revisions        driven.RevisionStore
	Chunks           driven.ChunkStore
	Extractors       driven.ExtractorRegistry
	Chunker          driven.Chunker
	Embedder         *EmbeddingClient
	MinContentLength int // Shortest extracted text worth indexing (default: 10)
	Logger           *slog.Logger
}

// NewIngestionCoordinator creates a new ingestion coordinator.
func NewIngestionCoordinator(cfg IngestionCoordinatorConfig) *IngestionCoordinator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	minLen := cfg.MinContentLength
	if minLen <= 0 {
		minLen = domain.DefaultMinContentLength
	}

	return &IngestionCoordinator{
		revisions:        cfg.Revisions,
		chunks:           cfg.Chunks,
		extractors:       cfg.Extractors,
		chunker:          cfg.Chunker,
		embedder:         cfg.Embedder,
		minContentLength: minLen,
		logger:           logger.With("component", "ingestion"),
	}
}

// Process ingests a revision and returns it in its final state.
// The returned error is nil only when the revision is READY.
func (c *IngestionCoordinator) Process(ctx context.Context, revisionID string) (*domain.DocumentRevision, error) {
	startTime := time.Now()
	logger := c.logger.With("revision_id", revisionID)

	// Step 1: Load the revision
	rev, err := c.revisions.Get(ctx, revisionID)
	if err != nil {
		return nil, fmt.Errorf("load revision %s: %w", revisionID, err)
	}

	// Step 2: Claim
	claim, err := rev.BeginProcessing()
	if err != nil {
		return rev, err
	}
	if err := c.revisions.ApplyTransition(ctx, claim); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			logger.Info("revision claimed by another worker")
		}
		return rev, fmt.Errorf("claim revision: %w", err)
	}
	claim.ApplyTo(rev)

	logger.Info("processing revision",
		"document_id", rev.DocumentID,
		"sequence", rev.Sequence,
		"file_type", rev.FileType,
		"retry", claim.From() == domain.StateFailed,
	)

	chunks, err := c.buildChunks(ctx, rev)
	if err != nil {
		return c.fail(ctx, logger, rev, err)
	}

	// Step 7: Replace and complete atomically
	processing, err := rev.Processing()
	if err != nil {
		return rev, err
	}
	complete := processing.Complete(len(chunks), c.embedder.Model())
	if err := c.chunks.ReplaceForRevision(ctx, rev.ID, chunks, complete); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// Someone else (the reaper) already moved the revision on.
			logger.Warn("revision changed state during processing", "error", err)
			return rev, fmt.Errorf("complete revision: %w", err)
		}
		return c.fail(ctx, logger, rev, fmt.Errorf("store chunks: %w", err))
	}
	complete.ApplyTo(rev)

	logger.Info("revision ready",
		"chunks", rev.ChunkCount,
		"model", rev.EmbeddingModel,
		"duration", time.Since(startTime),
	)

	return rev, nil
}

// buildChunks runs steps 3 to 6.
func (c *IngestionCoordinator) buildChunks(ctx context.Context, rev *domain.DocumentRevision) ([]*domain.Chunk, error) {
	// Step 3: Load content
	content, err := c.revisions.GetContent(ctx, rev.ID)
	if err != nil {
		return nil, fmt.Errorf("load content: %w", err)
	}

	// Step 4: Extract
	extractor := c.extractors.Get(rev.FileType)
	if extractor == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, rev.FileType)
	}
	text, err := extractor.Extract(ctx, content)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if n := utf8.RuneCountInString(text); n < c.minContentLength {
		return nil, fmt.Errorf("%w: extracted %d characters, need at least %d", domain.ErrEmptyContent, n, c.minContentLength)
	}

	// Step 5: Chunk
	pieces := c.chunker.Chunk(text, domain.TextMetadata(text, rev.FileType))
	if len(pieces) == 0 {
		return nil, fmt.Errorf("%w: no chunks produced", domain.ErrEmptyContent)
	}

	// Step 6: Embed
	texts := make([]string, len(pieces))
	for i, p := range pieces {
		texts[i] = p.Content
	}
	vectors, err := c.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	chunks := make([]*domain.Chunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = &domain.Chunk{
			ID:         uuid.NewString(),
			RevisionID: rev.ID,
			DocumentID: rev.DocumentID,
			Ordinal:    p.Position,
			Text:       p.Content,
			Embedding:  vectors[i],
			Metadata:   p.Metadata,
			CreatedAt:  now,
		}
	}
	return chunks, nil
}

// fail records cause on the revision and returns it. The write uses a
// context that survives cancellation of ctx.
func (c *IngestionCoordinator) fail(ctx context.Context, logger *slog.Logger, rev *domain.DocumentRevision, cause error) (*domain.DocumentRevision, error) {
	processing, err := rev.Processing()
	if err != nil {
		return rev, cause
	}

	t := processing.Fail(cause.Error())
	if err := c.revisions.ApplyTransition(context.WithoutCancel(ctx), t); err != nil {
		logger.Error("failed to record revision failure", "error", err, "cause", cause)
		return rev, cause
	}
	t.ApplyTo(rev)

	logger.Warn("revision failed",
		"error", cause,
		"retryable", domain.IsRetryable(cause),
	)
	return rev, cause
}
