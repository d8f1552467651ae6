package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

var _ driven.TaskQueue = (*Queue)(nil)

const taskColumns = `id, type, payload, status, priority, attempts, max_attempts,
	error, created_at, updated_at, started_at, completed_at, scheduled_for`

// pollInterval bounds how long a ready task waits for an idle worker that
// is inside DequeueWithTimeout.
const pollInterval = time.Second

// Queue is the task queue used when Redis is not configured. Workers claim
// rows with FOR UPDATE SKIP LOCKED, so concurrent claims never collide.
type Queue struct {
	db           *sql.DB
	retryBackoff time.Duration
}

// NewQueue expects the tasks table to exist. A non-positive retryBackoff
// uses domain.DefaultTaskRetryBackoff.
func NewQueue(db *sql.DB, retryBackoff time.Duration) *Queue {
	if retryBackoff <= 0 {
		retryBackoff = domain.DefaultTaskRetryBackoff
	}
	return &Queue{db: db, retryBackoff: retryBackoff}
}

type inserter interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertTask(ctx context.Context, db inserter, task *domain.Task) error {
	if task == nil {
		return fmt.Errorf("%w: nil task", domain.ErrInvalidInput)
	}
	payload, err := json.Marshal(task.Payload)
	if err != nil {
		return fmt.Errorf("encode payload of %s: %w", task.ID, err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO tasks (id, type, payload, status, priority, attempts, max_attempts,
			error, created_at, updated_at, scheduled_for)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		task.ID, task.Type, payload, task.Status, task.Priority, task.Attempts, task.MaxAttempts,
		task.Error, task.CreatedAt, task.UpdatedAt, task.ScheduledFor,
	)
	if err != nil {
		return fmt.Errorf("insert task %s: %w", task.ID, err)
	}
	return nil
}

func (q *Queue) Enqueue(ctx context.Context, task *domain.Task) error {
	return insertTask(ctx, q.db, task)
}

// EnqueueBatch inserts every task in one transaction.
func (q *Queue) EnqueueBatch(ctx context.Context, tasks []*domain.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, task := range tasks {
		if err := insertTask(ctx, tx, task); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Dequeue polls until a task is claimed or ctx ends.
func (q *Queue) Dequeue(ctx context.Context) (*domain.Task, error) {
	return q.poll(ctx, nil)
}

// DequeueWithTimeout polls for at most timeout seconds. Zero tries once.
func (q *Queue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error) {
	deadline := time.After(time.Duration(timeout) * time.Second)
	return q.poll(ctx, deadline)
}

func (q *Queue) poll(ctx context.Context, deadline <-chan time.Time) (*domain.Task, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		task, err := q.claim(ctx)
		if err != nil || task != nil {
			return task, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline:
			return nil, nil
		case <-ticker.C:
		}
	}
}

// claim moves the oldest ready task of the highest priority to processing
// in a single statement.
func (q *Queue) claim(ctx context.Context) (*domain.Task, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE tasks
		SET status = $1, attempts = attempts + 1, started_at = NOW(), updated_at = NOW()
		WHERE id = (
			SELECT id FROM tasks
			WHERE status = $2 AND scheduled_for <= NOW()
			ORDER BY priority DESC, created_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+taskColumns,
		domain.TaskStatusProcessing, domain.TaskStatusPending,
	)

	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim task: %w", err)
	}
	return task, nil
}

// finish settles a task as completed or failed.
func (q *Queue) finish(ctx context.Context, taskID string, status domain.TaskStatus, reason string) error {
	result, err := q.db.ExecContext(ctx, `
		UPDATE tasks
		SET status = $2, error = $3, completed_at = NOW(), updated_at = NOW()
		WHERE id = $1`, taskID, status, reason)
	if err != nil {
		return fmt.Errorf("settle task %s: %w", taskID, err)
	}
	return requireRow(result)
}

func (q *Queue) Ack(ctx context.Context, taskID string) error {
	return q.finish(ctx, taskID, domain.TaskStatusCompleted, "")
}

func (q *Queue) Fail(ctx context.Context, taskID string, reason string) error {
	return q.finish(ctx, taskID, domain.TaskStatusFailed, reason)
}

// Nack returns the task to pending after the retry backoff, or fails it
// when the claim that just ended used its last attempt.
func (q *Queue) Nack(ctx context.Context, taskID string, reason string) error {
	result, err := q.db.ExecContext(ctx, `
		UPDATE tasks
		SET status = CASE WHEN attempts < max_attempts THEN $2 ELSE $3 END,
			scheduled_for = CASE WHEN attempts < max_attempts
				THEN NOW() + $4::bigint * INTERVAL '1 millisecond' ELSE scheduled_for END,
			completed_at = CASE WHEN attempts < max_attempts THEN NULL ELSE NOW() END,
			error = $5,
			updated_at = NOW()
		WHERE id = $1`,
		taskID, domain.TaskStatusPending, domain.TaskStatusFailed, q.retryBackoff.Milliseconds(), reason,
	)
	if err != nil {
		return fmt.Errorf("release task %s: %w", taskID, err)
	}
	return requireRow(result)
}

func (q *Queue) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	task, err := scanTask(q.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, taskID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", taskID, err)
	}
	return task, nil
}

func (q *Queue) ListTasks(ctx context.Context, filter driven.TaskFilter) ([]*domain.Task, error) {
	query, args := listTasksQuery(filter)
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// listTasksQuery renders the filter as numbered placeholders, newest first.
func listTasksQuery(filter driven.TaskFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Status != "" {
		where = append(where, "status = "+arg(filter.Status))
	}
	if filter.Type != "" {
		where = append(where, "type = "+arg(filter.Type))
	}

	var b strings.Builder
	b.WriteString("SELECT " + taskColumns + " FROM tasks")
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY created_at DESC")
	if filter.Limit > 0 {
		b.WriteString(" LIMIT " + arg(filter.Limit))
	}
	if filter.Offset > 0 {
		b.WriteString(" OFFSET " + arg(filter.Offset))
	}
	return b.String(), args
}

// CancelTask fails a task that no worker has claimed yet.
func (q *Queue) CancelTask(ctx context.Context, taskID string) error {
	result, err := q.db.ExecContext(ctx, `
		UPDATE tasks
		SET status = $2, error = 'cancelled', completed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = $3`,
		taskID, domain.TaskStatusFailed, domain.TaskStatusPending,
	)
	if err != nil {
		return fmt.Errorf("cancel task %s: %w", taskID, err)
	}
	if err := requireRow(result); err == nil {
		return nil
	}

	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: task %s is %s", domain.ErrConflict, taskID, task.Status)
}

func (q *Queue) PurgeTasks(ctx context.Context, olderThanSeconds int) (int, error) {
	cutoff := time.Now().Add(-time.Duration(olderThanSeconds) * time.Second)
	result, err := q.db.ExecContext(ctx, `
		DELETE FROM tasks
		WHERE status IN ($1, $2) AND updated_at < $3`,
		domain.TaskStatusCompleted, domain.TaskStatusFailed, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("purge tasks: %w", err)
	}
	n, err := result.RowsAffected()
	return int(n), err
}

func (q *Queue) Stats(ctx context.Context) (*driven.QueueStats, error) {
	var (
		stats  driven.QueueStats
		oldest sql.NullInt64
	)
	err := q.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = $1),
			COUNT(*) FILTER (WHERE status = $2),
			COUNT(*) FILTER (WHERE status = $3),
			COUNT(*) FILTER (WHERE status = $4),
			EXTRACT(EPOCH FROM NOW() - MIN(created_at) FILTER (WHERE status = $1))::bigint
		FROM tasks`,
		domain.TaskStatusPending, domain.TaskStatusProcessing, domain.TaskStatusCompleted, domain.TaskStatusFailed,
	).Scan(&stats.PendingCount, &stats.ProcessingCount, &stats.CompletedCount, &stats.FailedCount, &oldest)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	stats.OldestPendingAge = oldest.Int64
	return &stats, nil
}

func (q *Queue) Ping(ctx context.Context) error {
	return q.db.PingContext(ctx)
}

// Close does nothing; the pool belongs to the caller.
func (q *Queue) Close() error {
	return nil
}

func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task                   domain.Task
		payload                []byte
		errText                sql.NullString
		startedAt, completedAt sql.NullTime
	)
	err := row.Scan(
		&task.ID, &task.Type, &payload, &task.Status, &task.Priority, &task.Attempts, &task.MaxAttempts,
		&errText, &task.CreatedAt, &task.UpdatedAt, &startedAt, &completedAt, &task.ScheduledFor,
	)
	if err != nil {
		return nil, err
	}

	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &task.Payload); err != nil {
			return nil, fmt.Errorf("decode payload of %s: %w", task.ID, err)
		}
	}
	task.Error = errText.String
	if startedAt.Valid {
		task.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		task.CompletedAt = &completedAt.Time
	}
	return &task, nil
}
