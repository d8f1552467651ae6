package domain

import "testing"

func sampleResults() []*RetrievalResult {
	return []*RetrievalResult{
		{
			Chunk:            &Chunk{ID: "c1", DocumentID: "d1", Text: "Remote work is allowed three days per week."},
			DocumentTitle:    "Remote Work Policy",
			RevisionSequence: 2,
			Score:            0.91,
			Rank:             1,
		},
		{
			Chunk:            &Chunk{ID: "c2", DocumentID: "d2", Text: "Offices open at 8am."},
			DocumentTitle:    "Office Hours",
			RevisionSequence: 1,
			Score:            0.72,
			Rank:             2,
		},
	}
}

func TestFormatContext(t *testing.T) {
	got := FormatContext(sampleResults())
	want := "[Remote Work Policy v2]\nRemote work is allowed three days per week.\n\n\n[Office Hours v1]\nOffices open at 8am.\n"
	if got != want {
		t.Errorf("unexpected context:\n%q\nwant\n%q", got, want)
	}

	if FormatContext(nil) != "" {
		t.Error("expected empty context for no results")
	}
}

func TestCitationsFrom(t *testing.T) {
	citations := CitationsFrom(sampleResults())

	if len(citations) != 2 {
		t.Fatalf("expected 2 citations, got %d", len(citations))
	}
	c := citations[0]
	if c.ChunkID != "c1" || c.DocumentID != "d1" || c.DocumentTitle != "Remote Work Policy" {
		t.Errorf("unexpected citation %+v", c)
	}
	if c.Rank != 1 || c.Score != 0.91 || c.RevisionSequence != 2 {
		t.Errorf("unexpected rank/score/sequence %+v", c)
	}
}

func TestWordCount(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"one", 1},
		{"  spaced   out\nwords\t here ", 4},
	}
	for _, tt := range tests {
		if got := WordCount(tt.in); got != tt.want {
			t.Errorf("WordCount(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
