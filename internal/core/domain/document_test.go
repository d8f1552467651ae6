package domain

import (
	"errors"
	"testing"
)

func TestParseFileType(t *testing.T) {
	tests := []struct {
		in      string
		want    FileType
		wantErr bool
	}{
		{"txt", FileTypeText, false},
		{"TEXT", FileTypeText, false},
		{".md", FileTypeMarkdown, false},
		{"markdown", FileTypeMarkdown, false},
		{"htm", FileTypeHTML, false},
		{"HTML", FileTypeHTML, false},
		{"docx", FileTypeDOCX, false},
		{" pdf ", FileTypePDF, false},
		{"xlsx", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFileType(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedFormat) {
					t.Errorf("expected ErrUnsupportedFormat, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseFileType(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestApprovalStateValid(t *testing.T) {
	for _, s := range []ApprovalState{ApprovalDraft, ApprovalApproved, ApprovalArchived} {
		if !s.Valid() {
			t.Errorf("expected %s to be valid", s)
		}
	}
	if ApprovalState("PUBLISHED").Valid() {
		t.Error("expected unknown state to be invalid")
	}
}
