package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// Extractor turns a raw file into plain text.
type Extractor interface {
	// Extract returns the document text. Output is not yet normalized.
	// Corrupt input returns an error wrapping domain.ErrExtractionFailed.
	Extract(ctx context.Context, content []byte) (string, error)

	// FileTypes returns the declared types this extractor handles.
	FileTypes() []domain.FileType

	// Priority returns the extractor priority (higher = preferred).
	Priority() int
}

// ExtractorRegistry selects an extractor by declared file type.
type ExtractorRegistry interface {
	// Get returns the highest priority extractor for the type, or nil.
	Get(fileType domain.FileType) Extractor

	// Register registers an extractor.
	Register(extractor Extractor)

	// List returns all file types with at least one extractor.
	List() []domain.FileType
}

// Chunk is a span of extracted text produced by the chunker.
type Chunk struct {
	// Content is the trimmed text of the chunk
	Content string

	// Position is the chunk ordinal within the revision (0-based, contiguous)
	Position int

	// StartOffset is the rune offset of the span start
	StartOffset int

	// EndOffset is the rune offset of the span end (exclusive)
	EndOffset int

	// Metadata holds the inherited document metadata plus char_start/char_end
	Metadata map[string]any
}

// Chunker splits text into overlapping spans.
type Chunker interface {
	Chunk(text string, metadata map[string]any) []Chunk
}
