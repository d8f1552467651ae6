package extractors

import (
	"context"
	"regexp"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

var (
	mdFence      = regexp.MustCompile("(?m)^\\s*(```|~~~).*$")
	mdInlineCode = regexp.MustCompile("`([^`\n]+)`")
	mdImage      = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	mdLink       = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	mdHeading    = regexp.MustCompile(`(?m)^\s{0,3}#{1,6}\s+`)
	mdBold       = regexp.MustCompile(`(\*\*|__)(.+?)(\*\*|__)`)
	mdItalic     = regexp.MustCompile(`(^|[\s(])[*_]([^*_\n]+)[*_]`)
	mdBlockquote = regexp.MustCompile(`(?m)^\s*>\s?`)
	mdRule       = regexp.MustCompile(`(?m)^\s*([-*_]\s*){3,}$`)
	mdBullet     = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	mdHTMLTag    = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)
)

// Markdown handles md uploads. Formatting is removed; code block contents
// and link labels are kept as text.
type Markdown struct{}

// NewMarkdown creates a Markdown extractor.
func NewMarkdown() *Markdown {
	return &Markdown{}
}

func (m *Markdown) Extract(_ context.Context, content []byte) (string, error) {
	text := strings.ToValidUTF8(strings.TrimPrefix(string(content), "\uFEFF"), "\uFFFD")
	return Clean(stripMarkdown(text)), nil
}

func (m *Markdown) FileTypes() []domain.FileType {
	return []domain.FileType{domain.FileTypeMarkdown}
}

func (m *Markdown) Priority() int {
	return 50
}

func stripMarkdown(content string) string {
	content = mdFence.ReplaceAllString(content, "")
	content = mdInlineCode.ReplaceAllString(content, "$1")
	content = mdImage.ReplaceAllString(content, "$1")
	content = mdLink.ReplaceAllString(content, "$1")
	content = mdRule.ReplaceAllString(content, "")
	content = mdHeading.ReplaceAllString(content, "")
	content = mdBlockquote.ReplaceAllString(content, "")
	content = mdBullet.ReplaceAllString(content, "")
	content = mdBold.ReplaceAllString(content, "$2")
	content = mdItalic.ReplaceAllString(content, "$1$2")
	content = mdHTMLTag.ReplaceAllString(content, "")
	return content
}
