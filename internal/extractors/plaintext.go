package extractors

import (
	"context"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// Plaintext handles txt uploads.
type Plaintext struct{}

// NewPlaintext creates a plain text extractor.
func NewPlaintext() *Plaintext {
	return &Plaintext{}
}

// Extract decodes the bytes as UTF-8, replacing invalid sequences.
func (p *Plaintext) Extract(_ context.Context, content []byte) (string, error) {
	text := strings.TrimPrefix(string(content), "\uFEFF")
	return Clean(strings.ToValidUTF8(text, "\uFFFD")), nil
}

func (p *Plaintext) FileTypes() []domain.FileType {
	return []domain.FileType{domain.FileTypeText}
}

func (p *Plaintext) Priority() int {
	return 10
}
