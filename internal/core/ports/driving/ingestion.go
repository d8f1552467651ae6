package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// IngestionService turns an uploaded revision into searchable chunks
type IngestionService interface {
	// Process claims the revision, extracts, chunks and embeds its content,
	// and leaves it READY or FAILED
	Process(ctx context.Context, revisionID string) (*domain.DocumentRevision, error)
}

// MaintenanceService repairs revisions abandoned mid-pipeline
type MaintenanceService interface {
	// ReapStale fails revisions stuck in UPLOADED or PROCESSING and reports how many moved
	ReapStale(ctx context.Context) (int, error)
}
