package domain

import (
	"fmt"
	"strings"
	"time"
)

// ApprovalState controls whether a document's content may be retrieved.
type ApprovalState string

const (
	ApprovalDraft    ApprovalState = "DRAFT"
	ApprovalApproved ApprovalState = "APPROVED"
	ApprovalArchived ApprovalState = "ARCHIVED"
)

// Valid reports whether s is a known approval state.
func (s ApprovalState) Valid() bool {
	switch s {
	case ApprovalDraft, ApprovalApproved, ApprovalArchived:
		return true
	}
	return false
}

// FileType is the declared format of an uploaded revision.
type FileType string

const (
	FileTypeText     FileType = "txt"
	FileTypeMarkdown FileType = "md"
	FileTypeHTML     FileType = "html"
	FileTypeDOCX     FileType = "docx"
	FileTypePDF      FileType = "pdf"
)

// SupportedFileTypes lists every file type the extractors accept.
var SupportedFileTypes = []FileType{
	FileTypeText,
	FileTypeMarkdown,
	FileTypeHTML,
	FileTypeDOCX,
	FileTypePDF,
}

// ParseFileType normalizes a declared type ("PDF", ".md", "htm") to a FileType.
func ParseFileType(s string) (FileType, error) {
	t := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))
	switch t {
	case "htm":
		t = "html"
	case "markdown":
		t = "md"
	case "text":
		t = "txt"
	}
	for _, ft := range SupportedFileTypes {
		if FileType(t) == ft {
			return ft, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// SourceDocument is the logical document a user uploads revisions of.
type SourceDocument struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	Description   string        `json:"description,omitempty"`
	OwnerID       string        `json:"owner_id"`
	Department    string        `json:"department,omitempty"`
	ApprovalState ApprovalState `json:"approval_state"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Chunk is a contiguous span of a revision's extracted text with its embedding.
type Chunk struct {
	ID         string         `json:"id"`
	RevisionID string         `json:"revision_id"`
	DocumentID string         `json:"document_id"`
	Ordinal    int            `json:"ordinal"`
	Text       string         `json:"text"`
	Embedding  []float32      `json:"-"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}
