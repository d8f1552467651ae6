package domain

import (
	"strings"
	"testing"
)

func TestTextMetadata(t *testing.T) {
	text := "\nRemote Work Policy\nRemote work is allowed three days per week."

	meta := TextMetadata(text, FileTypeText)

	if meta["word_count"] != 11 {
		t.Errorf("expected word_count 11, got %v", meta["word_count"])
	}
	if meta["char_count"] != len([]rune(text)) {
		t.Errorf("expected char_count %d, got %v", len([]rune(text)), meta["char_count"])
	}
	if meta["potential_title"] != "Remote Work Policy" {
		t.Errorf("unexpected potential_title %v", meta["potential_title"])
	}
	if meta["file_type"] != "txt" {
		t.Errorf("unexpected file_type %v", meta["file_type"])
	}
}

func TestTextMetadata_LongTitle(t *testing.T) {
	meta := TextMetadata(strings.Repeat("x", 300), FileTypeMarkdown)

	title := meta["potential_title"].(string)
	if len(title) != 200 {
		t.Errorf("expected title truncated to 200, got %d", len(title))
	}
}
