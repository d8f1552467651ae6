package domain

import (
	"errors"
	"strings"
	"testing"
)

func newRevision(state ProcessingState) *DocumentRevision {
	return &DocumentRevision{ID: "rev-1", DocumentID: "doc-1", Sequence: 1, State: state}
}

func TestRevisionViews(t *testing.T) {
	states := []ProcessingState{StateUploaded, StateProcessing, StateReady, StateFailed}

	for _, state := range states {
		t.Run(string(state), func(t *testing.T) {
			rev := newRevision(state)

			_, errU := rev.Uploaded()
			_, errP := rev.Processing()
			_, errF := rev.Failed()

			check := func(name string, err error, want bool) {
				if want && err != nil {
					t.Errorf("%s view: unexpected error %v", name, err)
				}
				if !want && !errors.Is(err, ErrInvalidTransition) {
					t.Errorf("%s view: expected ErrInvalidTransition, got %v", name, err)
				}
			}
			check("uploaded", errU, state == StateUploaded)
			check("processing", errP, state == StateProcessing)
			check("failed", errF, state == StateFailed)
		})
	}
}

func TestLegalTransitions(t *testing.T) {
	uploaded, _ := newRevision(StateUploaded).Uploaded()
	processing, _ := newRevision(StateProcessing).Processing()
	failed, _ := newRevision(StateFailed).Failed()

	tests := []struct {
		name string
		tr   Transition
		from ProcessingState
		to   ProcessingState
	}{
		{"claim", uploaded.Claim(), StateUploaded, StateProcessing},
		{"expire", uploaded.Expire(StaleUploadMessage), StateUploaded, StateFailed},
		{"complete", processing.Complete(3, "text-embedding-3-small"), StateProcessing, StateReady},
		{"fail", processing.Fail("boom"), StateProcessing, StateFailed},
		{"retry", failed.Retry(), StateFailed, StateProcessing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.tr.From() != tt.from || tt.tr.To() != tt.to {
				t.Errorf("expected %s -> %s, got %s -> %s", tt.from, tt.to, tt.tr.From(), tt.tr.To())
			}
			if tt.tr.RevisionID() != "rev-1" {
				t.Errorf("expected revision rev-1, got %s", tt.tr.RevisionID())
			}
			if tt.tr.At().IsZero() {
				t.Error("expected transition time")
			}
			if tt.tr.IsZero() {
				t.Error("expected non-zero transition")
			}
		})
	}
}

func TestBeginProcessing(t *testing.T) {
	tests := []struct {
		state   ProcessingState
		wantErr bool
	}{
		{StateUploaded, false},
		{StateFailed, false},
		{StateProcessing, true},
		{StateReady, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			tr, err := newRevision(tt.state).BeginProcessing()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTransition) {
					t.Errorf("expected ErrInvalidTransition, got %v", err)
				}
				if !tr.IsZero() {
					t.Error("expected zero transition on error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tr.From() != tt.state || tr.To() != StateProcessing {
				t.Errorf("unexpected transition %s", tr)
			}
		})
	}
}

func TestTransitionApplyTo(t *testing.T) {
	rev := newRevision(StateProcessing)
	rev.ErrorMessage = "previous failure"
	processing, _ := rev.Processing()

	processing.Complete(7, "nomic-embed-text").ApplyTo(rev)

	if rev.State != StateReady {
		t.Errorf("expected READY, got %s", rev.State)
	}
	if rev.ChunkCount != 7 || rev.EmbeddingModel != "nomic-embed-text" {
		t.Errorf("unexpected chunk count/model %d/%s", rev.ChunkCount, rev.EmbeddingModel)
	}
	if rev.ProcessedAt == nil {
		t.Error("expected ProcessedAt to be set")
	}
	if rev.ErrorMessage != "" {
		t.Errorf("expected error message cleared, got %q", rev.ErrorMessage)
	}
}

func TestFailTruncatesMessage(t *testing.T) {
	processing, _ := newRevision(StateProcessing).Processing()
	long := strings.Repeat("é", MaxErrorMessageLength+50)

	tr := processing.Fail(long)

	if n := len([]rune(tr.ErrorMessage())); n != MaxErrorMessageLength {
		t.Errorf("expected %d runes, got %d", MaxErrorMessageLength, n)
	}
}

func TestTruncateErrorMessage(t *testing.T) {
	if got := TruncateErrorMessage("short"); got != "short" {
		t.Errorf("expected short message unchanged, got %q", got)
	}
	exact := strings.Repeat("a", MaxErrorMessageLength)
	if got := TruncateErrorMessage(exact); got != exact {
		t.Error("expected message at limit unchanged")
	}
}

func TestRevisionIsTerminal(t *testing.T) {
	if newRevision(StateUploaded).IsTerminal() || newRevision(StateProcessing).IsTerminal() {
		t.Error("expected in-flight states to be non-terminal")
	}
	if !newRevision(StateReady).IsTerminal() || !newRevision(StateFailed).IsTerminal() {
		t.Error("expected READY and FAILED to be terminal")
	}
}
