package redis

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

func newTestQueue(t *testing.T, backoff time.Duration) (*miniredis.Miniredis, *Queue) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	q, err := NewQueue(t.Context(), client, Config{ConsumerName: "test-worker", RetryBackoff: backoff})
	require.NoError(t, err)
	return mr, q
}

func TestNewQueue_Defaults(t *testing.T) {
	_, q := newTestQueue(t, 0)
	assert.Equal(t, domain.DefaultTaskRetryBackoff, q.retryBackoff)
	assert.Equal(t, "test-worker", q.consumerName)
}

func TestQueue_ReclaimWaitsForClaimTimeout(t *testing.T) {
	mr, q := newTestQueue(t, 0)
	ctx := t.Context()
	assert.Equal(t, defaultClaimTimeout, q.claimTimeout)

	task := domain.NewProcessRevisionTask("rev-1")
	require.NoError(t, q.Enqueue(ctx, task))
	got, err := q.DequeueWithTimeout(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)

	other, err := NewQueue(ctx, q.client, Config{ConsumerName: "other-worker"})
	require.NoError(t, err)

	// A long ingestion past the reaper's PROCESSING timeout still owns its message.
	mr.SetTime(time.Now().Add(31 * time.Minute))
	assert.Nil(t, other.reclaim(ctx))

	mr.SetTime(time.Now().Add(defaultClaimTimeout + time.Minute))
	reclaimed := other.reclaim(ctx)
	require.NotNil(t, reclaimed)
	assert.Equal(t, task.ID, reclaimed.ID)
	assert.Equal(t, 2, reclaimed.Attempts)
}

func TestNewQueue_ExistingGroup(t *testing.T) {
	mr, _ := newTestQueue(t, 0)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	q, err := NewQueue(t.Context(), client, Config{})
	require.NoError(t, err)
	assert.NotEmpty(t, q.consumerName, "defaults to host and pid")
}

func TestNewQueue_RequiresClient(t *testing.T) {
	_, err := NewQueue(t.Context(), nil, Config{})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestQueue_DropsMessageWithoutBody(t *testing.T) {
	_, q := newTestQueue(t, 0)
	ctx := t.Context()

	task := domain.NewProcessRevisionTask("rev-1")
	require.NoError(t, q.Enqueue(ctx, task))
	require.NoError(t, q.client.Del(ctx, taskKey(task.ID)).Err())

	got, err := q.DequeueWithTimeout(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Zero(t, q.client.XLen(ctx, readyKey).Val())
}

func TestQueue_EnqueueDequeueAck(t *testing.T) {
	_, q := newTestQueue(t, 0)
	ctx := t.Context()

	task := domain.NewProcessRevisionTask("rev-1")
	require.NoError(t, q.Enqueue(ctx, task))

	got, err := q.DequeueWithTimeout(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, "rev-1", got.RevisionID())
	assert.Equal(t, domain.TaskStatusProcessing, got.Status)
	assert.Equal(t, 1, got.Attempts)

	require.NoError(t, q.Ack(ctx, task.ID))

	stored, err := q.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, stored.Status)
	assert.NotNil(t, stored.CompletedAt)
}

func TestQueue_Fail(t *testing.T) {
	_, q := newTestQueue(t, 0)
	ctx := t.Context()

	task := domain.NewProcessRevisionTask("rev-1")
	require.NoError(t, q.Enqueue(ctx, task))
	_, err := q.DequeueWithTimeout(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, q.Fail(ctx, task.ID, "unsupported format"))

	stored, err := q.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, stored.Status)
	assert.Equal(t, "unsupported format", stored.Error)
}

func TestQueue_Nack_SchedulesRetryAfterBackoff(t *testing.T) {
	mr, q := newTestQueue(t, 90*time.Second)
	ctx := t.Context()

	task := domain.NewProcessRevisionTask("rev-1")
	require.NoError(t, q.Enqueue(ctx, task))
	_, err := q.DequeueWithTimeout(ctx, 1)
	require.NoError(t, err)

	before := time.Now()
	require.NoError(t, q.Nack(ctx, task.ID, "rate limited"))

	stored, err := q.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusPending, stored.Status)
	assert.Equal(t, "rate limited", stored.Error)
	assert.WithinDuration(t, before.Add(90*time.Second), stored.ScheduledFor, 2*time.Second)

	members, err := mr.ZMembers(delayedKey)
	require.NoError(t, err)
	assert.Equal(t, []string{task.ID}, members)

	// not due yet
	got, err := q.DequeueWithTimeout(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestQueue_Nack_ExhaustedAttemptsFails(t *testing.T) {
	_, q := newTestQueue(t, 0)
	ctx := t.Context()

	task := domain.NewProcessRevisionTask("rev-1")
	task.MaxAttempts = 1
	require.NoError(t, q.Enqueue(ctx, task))
	_, err := q.DequeueWithTimeout(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, q.Nack(ctx, task.ID, "upstream error"))

	stored, err := q.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, stored.Status)
	assert.Zero(t, q.client.ZCard(ctx, delayedKey).Val())
}

func TestQueue_DelayedTaskPromotedWhenDue(t *testing.T) {
	mr, q := newTestQueue(t, 0)
	ctx := t.Context()

	task := domain.NewProcessRevisionTask("rev-1")
	task.ScheduledFor = time.Now().Add(time.Hour)
	require.NoError(t, q.Enqueue(ctx, task))

	got, err := q.DequeueWithTimeout(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)

	// make it due
	_, err = mr.ZAdd(delayedKey, float64(time.Now().Add(-time.Second).UnixMilli()), task.ID)
	require.NoError(t, err)

	got, err = q.DequeueWithTimeout(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, task.ID, got.ID)
	assert.Zero(t, q.client.ZCard(ctx, delayedKey).Val())
}

func TestQueue_EnqueueBatchAndList(t *testing.T) {
	_, q := newTestQueue(t, 0)
	ctx := t.Context()

	tasks := []*domain.Task{
		domain.NewProcessRevisionTask("rev-1"),
		domain.NewProcessRevisionTask("rev-2"),
		domain.NewTask(domain.TaskTypePurgeTasks, nil),
	}
	require.NoError(t, q.EnqueueBatch(ctx, tasks))

	all, err := q.ListTasks(ctx, driven.TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	revisions, err := q.ListTasks(ctx, driven.TaskFilter{Type: domain.TaskTypeProcessRevision})
	require.NoError(t, err)
	assert.Len(t, revisions, 2)

	limited, err := q.ListTasks(ctx, driven.TaskFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	rest, err := q.ListTasks(ctx, driven.TaskFilter{Offset: 2})
	require.NoError(t, err)
	assert.Len(t, rest, 1)

	none, err := q.ListTasks(ctx, driven.TaskFilter{Status: domain.TaskStatusFailed})
	require.NoError(t, err)
	assert.Empty(t, none)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.PendingCount)
}

func TestQueue_GetTask_NotFound(t *testing.T) {
	_, q := newTestQueue(t, 0)

	_, err := q.GetTask(t.Context(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = q.Ack(t.Context(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestQueue_CancelTask(t *testing.T) {
	_, q := newTestQueue(t, 0)
	ctx := t.Context()

	delayed := domain.NewProcessRevisionTask("rev-1")
	delayed.ScheduledFor = time.Now().Add(time.Hour)
	require.NoError(t, q.Enqueue(ctx, delayed))

	require.NoError(t, q.CancelTask(ctx, delayed.ID))
	stored, err := q.GetTask(ctx, delayed.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, stored.Status)
	assert.Equal(t, "cancelled", stored.Error)
	assert.Zero(t, q.client.ZCard(ctx, delayedKey).Val())

	// already failed
	err = q.CancelTask(ctx, delayed.ID)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestQueue_PurgeTasks(t *testing.T) {
	_, q := newTestQueue(t, 0)
	ctx := t.Context()

	done := domain.NewProcessRevisionTask("rev-1")
	require.NoError(t, q.Enqueue(ctx, done))
	_, err := q.DequeueWithTimeout(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, q.Ack(ctx, done.ID))

	pending := domain.NewProcessRevisionTask("rev-2")
	require.NoError(t, q.Enqueue(ctx, pending))

	// nothing is old enough yet
	purged, err := q.PurgeTasks(ctx, 3600)
	require.NoError(t, err)
	assert.Zero(t, purged)

	purged, err = q.PurgeTasks(ctx, -1)
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	_, err = q.GetTask(ctx, done.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = q.GetTask(ctx, pending.ID)
	assert.NoError(t, err)
}
