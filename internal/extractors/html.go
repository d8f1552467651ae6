package extractors

import (
	"bytes"
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

const htmlBlockSelector = "p, div, li, tr, br, h1, h2, h3, h4, h5, h6, section, article, header, footer, blockquote, pre, table, ul, ol, dd, dt"

// HTML handles html uploads.
type HTML struct{}

// NewHTML creates an HTML extractor.
func NewHTML() *HTML {
	return &HTML{}
}

// Extract returns the visible text of the document, one block element per line.
func (h *HTML) Extract(_ context.Context, content []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("%w: parse html: %v", domain.ErrExtractionFailed, err)
	}

	doc.Find("script, style, noscript, template, head").Remove()
	doc.Find(htmlBlockSelector).Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	text := doc.Find("body").Text()
	if text == "" {
		text = doc.Text()
	}
	return Clean(text), nil
}

func (h *HTML) FileTypes() []domain.FileType {
	return []domain.FileType{domain.FileTypeHTML}
}

func (h *HTML) Priority() int {
	return 50
}
