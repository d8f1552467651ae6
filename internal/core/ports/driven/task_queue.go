package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// TaskQueue carries background work from the API and the scheduler to the
// workers. Redis streams are used when configured, PostgreSQL otherwise.
//
// Delivery is at-least-once: a task handed to one worker is invisible to the
// others until it is settled with Ack, Nack or Fail.
type TaskQueue interface {
	// Enqueue makes a task available once its ScheduledFor has passed.
	Enqueue(ctx context.Context, task *domain.Task) error

	// EnqueueBatch enqueues all tasks or none of them.
	EnqueueBatch(ctx context.Context, tasks []*domain.Task) error

	// Dequeue blocks until a task can be claimed or ctx is done.
	Dequeue(ctx context.Context) (*domain.Task, error)

	// DequeueWithTimeout waits at most timeout seconds and returns nil, nil
	// when nothing became ready.
	DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error)

	// Ack marks a claimed task completed.
	Ack(ctx context.Context, taskID string) error

	// Fail marks a claimed task failed without further attempts.
	Fail(ctx context.Context, taskID string, reason string) error

	// Nack releases a claimed task for another attempt after the queue's
	// retry backoff, or fails it once MaxAttempts is spent.
	Nack(ctx context.Context, taskID string, reason string) error

	GetTask(ctx context.Context, taskID string) (*domain.Task, error)
	ListTasks(ctx context.Context, filter TaskFilter) ([]*domain.Task, error)

	// CancelTask fails a pending task with reason "cancelled". Claimed and
	// finished tasks are reported as ErrConflict.
	CancelTask(ctx context.Context, taskID string) error

	// PurgeTasks deletes completed and failed tasks last updated more than
	// olderThan seconds ago and returns how many were removed.
	PurgeTasks(ctx context.Context, olderThan int) (int, error)

	Stats(ctx context.Context) (*QueueStats, error)
	Ping(ctx context.Context) error
	Close() error
}

// TaskFilter narrows ListTasks. Zero values match everything.
type TaskFilter struct {
	Status domain.TaskStatus
	Type   domain.TaskType
	Limit  int
	Offset int
}

// QueueStats counts tasks by status.
type QueueStats struct {
	PendingCount    int64 `json:"pending_count"`
	ProcessingCount int64 `json:"processing_count"`
	CompletedCount  int64 `json:"completed_count"`
	FailedCount     int64 `json:"failed_count"`
	// OldestPendingAge is in seconds.
	OldestPendingAge int64 `json:"oldest_pending_age"`
}
