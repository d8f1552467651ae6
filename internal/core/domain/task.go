package domain

import (
	"time"

	"github.com/google/uuid"
)

// DefaultTaskRetryBackoff is the fixed delay before a released task is
// offered again.
const DefaultTaskRetryBackoff = 60 * time.Second

// DefaultTaskMaxAttempts bounds how often a task is claimed before it fails.
const DefaultTaskMaxAttempts = 3

// TaskType names the work a task carries.
type TaskType string

const (
	// TaskTypeProcessRevision ingests one uploaded revision.
	TaskTypeProcessRevision TaskType = "process_revision"
	// TaskTypeReapStale fails revisions stuck in UPLOADED or PROCESSING.
	TaskTypeReapStale TaskType = "reap_stale_revisions"
	// TaskTypePurgeTasks deletes finished tasks past their retention.
	TaskTypePurgeTasks TaskType = "purge_tasks"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task is one unit of background work on the queue. Attempts counts claims,
// so a task claimed MaxAttempts times is not offered again.
type Task struct {
	ID      string            `json:"id"`
	Type    TaskType          `json:"type"`
	Payload map[string]string `json:"payload"`
	Status  TaskStatus        `json:"status"`
	// Priority orders ready tasks, higher first.
	Priority    int    `json:"priority"`
	Attempts    int    `json:"attempts"`
	MaxAttempts int    `json:"max_attempts"`
	Error       string `json:"error,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	// ScheduledFor is the earliest time a worker may claim the task.
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewTask returns a pending task that is ready immediately.
func NewTask(taskType TaskType, payload map[string]string) *Task {
	now := time.Now()
	return &Task{
		ID:           uuid.NewString(),
		Type:         taskType,
		Payload:      payload,
		Status:       TaskStatusPending,
		MaxAttempts:  DefaultTaskMaxAttempts,
		CreatedAt:    now,
		UpdatedAt:    now,
		ScheduledFor: now,
	}
}

func NewProcessRevisionTask(revisionID string) *Task {
	return NewTask(TaskTypeProcessRevision, map[string]string{"revision_id": revisionID})
}

// RevisionID is empty for tasks that do not target a revision.
func (t *Task) RevisionID() string {
	return t.Payload["revision_id"]
}

func (t *Task) CanRetry() bool {
	return t.Attempts < t.MaxAttempts
}

// MarkProcessing records a claim.
func (t *Task) MarkProcessing() {
	now := time.Now()
	t.Status = TaskStatusProcessing
	t.Attempts++
	t.StartedAt = &now
	t.UpdatedAt = now
}

func (t *Task) MarkCompleted() {
	t.finish(TaskStatusCompleted, "")
}

func (t *Task) MarkFailed(reason string) {
	t.finish(TaskStatusFailed, reason)
}

func (t *Task) finish(status TaskStatus, reason string) {
	now := time.Now()
	t.Status = status
	t.Error = reason
	t.CompletedAt = &now
	t.UpdatedAt = now
}

// Retry releases the task back to pending, claimable after backoff. The
// delay is fixed rather than growing with Attempts.
func (t *Task) Retry(reason string, backoff time.Duration) {
	if backoff <= 0 {
		backoff = DefaultTaskRetryBackoff
	}
	now := time.Now()
	t.Status = TaskStatusPending
	t.Error = reason
	t.CompletedAt = nil
	t.UpdatedAt = now
	t.ScheduledFor = now.Add(backoff)
}
