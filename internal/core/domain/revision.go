package domain

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// ProcessingState is the ingestion state of a revision.
type ProcessingState string

const (
	StateUploaded   ProcessingState = "UPLOADED"
	StateProcessing ProcessingState = "PROCESSING"
	StateReady      ProcessingState = "READY"
	StateFailed     ProcessingState = "FAILED"
)

// MaxErrorMessageLength bounds the failure reason stored on a revision.
const MaxErrorMessageLength = 500

// StaleUploadMessage is recorded on revisions the reaper expires.
const StaleUploadMessage = "Processing timed out"

// DocumentRevision is one uploaded version of a SourceDocument.
// Revisions are never deleted; re-ingesting content means uploading a new revision.
type DocumentRevision struct {
	ID             string          `json:"id"`
	DocumentID     string          `json:"document_id"`
	Sequence       int             `json:"sequence"`
	FileType       FileType        `json:"file_type"`
	FileName       string          `json:"file_name,omitempty"`
	ByteSize       int64           `json:"byte_size"`
	ContentHash    string          `json:"content_hash"`
	State          ProcessingState `json:"state"`
	ErrorMessage   string          `json:"error_message,omitempty"`
	ChunkCount     int             `json:"chunk_count"`
	EmbeddingModel string          `json:"embedding_model,omitempty"`
	UploadedBy     string          `json:"uploaded_by"`
	ProcessedAt    *time.Time      `json:"processed_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Transition is a validated state change for one revision. Values can only
// be obtained from the state views below, so a store that persists a
// Transition never sees an illegal edge.
type Transition struct {
	revisionID     string
	from           ProcessingState
	to             ProcessingState
	errorMessage   string
	chunkCount     int
	embeddingModel string
	at             time.Time
}

func (t Transition) RevisionID() string     { return t.revisionID }
func (t Transition) From() ProcessingState  { return t.from }
func (t Transition) To() ProcessingState    { return t.to }
func (t Transition) ErrorMessage() string   { return t.errorMessage }
func (t Transition) ChunkCount() int        { return t.chunkCount }
func (t Transition) EmbeddingModel() string { return t.embeddingModel }
func (t Transition) At() time.Time          { return t.at }

// IsZero reports whether t was never produced by a state view.
func (t Transition) IsZero() bool {
	return t.revisionID == "" && t.to == ""
}

func (t Transition) String() string {
	return fmt.Sprintf("%s: %s -> %s", t.revisionID, t.from, t.to)
}

// ApplyTo mirrors a persisted transition onto the in-memory revision.
func (t Transition) ApplyTo(r *DocumentRevision) {
	r.State = t.to
	r.ErrorMessage = t.errorMessage
	r.UpdatedAt = t.at
	if t.to == StateReady {
		r.ChunkCount = t.chunkCount
		r.EmbeddingModel = t.embeddingModel
		at := t.at
		r.ProcessedAt = &at
	}
}

func newTransition(r *DocumentRevision, to ProcessingState) Transition {
	return Transition{
		revisionID: r.ID,
		from:       r.State,
		to:         to,
		at:         time.Now(),
	}
}

func (r *DocumentRevision) wrongState(want ProcessingState) error {
	return fmt.Errorf("%w: revision %s is %s, not %s", ErrInvalidTransition, r.ID, r.State, want)
}

// UploadedRevision is a revision known to be in StateUploaded.
type UploadedRevision struct{ rev *DocumentRevision }

// ProcessingRevision is a revision known to be in StateProcessing.
type ProcessingRevision struct{ rev *DocumentRevision }

// FailedRevision is a revision known to be in StateFailed.
type FailedRevision struct{ rev *DocumentRevision }

// Uploaded returns the uploaded view of r.
func (r *DocumentRevision) Uploaded() (UploadedRevision, error) {
	if r.State != StateUploaded {
		return UploadedRevision{}, r.wrongState(StateUploaded)
	}
	return UploadedRevision{rev: r}, nil
}

// Processing returns the processing view of r.
func (r *DocumentRevision) Processing() (ProcessingRevision, error) {
	if r.State != StateProcessing {
		return ProcessingRevision{}, r.wrongState(StateProcessing)
	}
	return ProcessingRevision{rev: r}, nil
}

// Failed returns the failed view of r.
func (r *DocumentRevision) Failed() (FailedRevision, error) {
	if r.State != StateFailed {
		return FailedRevision{}, r.wrongState(StateFailed)
	}
	return FailedRevision{rev: r}, nil
}

// Claim starts the first processing attempt.
func (u UploadedRevision) Claim() Transition {
	return newTransition(u.rev, StateProcessing)
}

// Expire fails an upload that was never picked up.
func (u UploadedRevision) Expire(reason string) Transition {
	t := newTransition(u.rev, StateFailed)
	t.errorMessage = TruncateErrorMessage(reason)
	return t
}

// Complete marks the revision searchable.
func (p ProcessingRevision) Complete(chunkCount int, embeddingModel string) Transition {
	t := newTransition(p.rev, StateReady)
	t.chunkCount = chunkCount
	t.embeddingModel = embeddingModel
	return t
}

// Fail records why processing stopped.
func (p ProcessingRevision) Fail(reason string) Transition {
	t := newTransition(p.rev, StateFailed)
	t.errorMessage = TruncateErrorMessage(reason)
	return t
}

// Retry starts another processing attempt after a failure.
func (f FailedRevision) Retry() Transition {
	return newTransition(f.rev, StateProcessing)
}

// Revision returns the underlying revision.
func (u UploadedRevision) Revision() *DocumentRevision   { return u.rev }
func (p ProcessingRevision) Revision() *DocumentRevision { return p.rev }
func (f FailedRevision) Revision() *DocumentRevision     { return f.rev }

// BeginProcessing claims r from whichever state allows it: Uploaded on the
// first attempt, Failed on a retry.
func (r *DocumentRevision) BeginProcessing() (Transition, error) {
	switch r.State {
	case StateUploaded:
		return UploadedRevision{rev: r}.Claim(), nil
	case StateFailed:
		return FailedRevision{rev: r}.Retry(), nil
	}
	return Transition{}, fmt.Errorf("%w: revision %s is %s", ErrInvalidTransition, r.ID, r.State)
}

// IsTerminal reports whether the revision needs no further work.
func (r *DocumentRevision) IsTerminal() bool {
	return r.State == StateReady || r.State == StateFailed
}

// TruncateErrorMessage shortens msg to MaxErrorMessageLength runes.
func TruncateErrorMessage(msg string) string {
	if utf8.RuneCountInString(msg) <= MaxErrorMessageLength {
		return msg
	}
	runes := []rune(msg)
	return string(runes[:MaxErrorMessageLength])
}
