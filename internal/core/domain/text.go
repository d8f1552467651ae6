package domain

import (
	"strings"
	"unicode/utf8"
)

// DefaultMinContentLength is the shortest extracted text worth indexing.
const DefaultMinContentLength = 10

const maxTitleLength = 200

// TextMetadata describes extracted text. It is copied onto every chunk.
func TextMetadata(text string, fileType FileType) map[string]any {
	return map[string]any{
		"word_count":      WordCount(text),
		"char_count":      utf8.RuneCountInString(text),
		"potential_title": potentialTitle(text),
		"file_type":       string(fileType),
	}
}

func potentialTitle(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if utf8.RuneCountInString(line) > maxTitleLength {
			line = string([]rune(line)[:maxTitleLength])
		}
		return line
	}
	return ""
}
