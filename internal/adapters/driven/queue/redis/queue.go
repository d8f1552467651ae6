package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Key layout. Ready task IDs flow through one stream read by a single
// consumer group; tasks with a future ScheduledFor wait in a sorted set
// scored by unix milliseconds.
const (
	keyPrefix  = "sercha-rag:queue:"
	readyKey   = keyPrefix + "ready"
	delayedKey = keyPrefix + "delayed"
	groupName  = "workers"

	// defaultClaimTimeout outlives the reaper's 30m PROCESSING timeout so
	// a long ingestion is never taken over while its worker still runs.
	defaultClaimTimeout = 45 * time.Minute
	// Task bodies expire this long after their last write.
	bodyTTL = 24 * time.Hour

	scanBatch = 100
)

func taskKey(id string) string  { return keyPrefix + "task:" + id }
func claimKey(id string) string { return keyPrefix + "claim:" + id }

var _ driven.TaskQueue = (*Queue)(nil)

type Config struct {
	// ConsumerName must be unique per worker process. Defaults to host-pid.
	ConsumerName string
	RetryBackoff time.Duration
	// ClaimTimeout is how long a delivered message may stay unacked before
	// another consumer takes it over. Defaults to 45m.
	ClaimTimeout time.Duration
	Logger       *slog.Logger
}

// Queue is a TaskQueue on Redis streams. Task bodies live under their own
// keys as JSON; the stream only carries IDs.
type Queue struct {
	client       *redis.Client
	consumerName string
	retryBackoff time.Duration
	claimTimeout time.Duration
	logger       *slog.Logger
}

// NewQueue creates the consumer group when it does not exist yet.
func NewQueue(ctx context.Context, client *redis.Client, cfg Config) (*Queue, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: redis client is required", domain.ErrInvalidConfig)
	}
	if cfg.ConsumerName == "" {
		host, _ := os.Hostname()
		cfg.ConsumerName = fmt.Sprintf("%s-%d", host, os.Getpid())
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = domain.DefaultTaskRetryBackoff
	}
	if cfg.ClaimTimeout <= 0 {
		cfg.ClaimTimeout = defaultClaimTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	err := client.XGroupCreateMkStream(ctx, readyKey, groupName, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("create consumer group: %w", err)
	}

	return &Queue{
		client:       client,
		consumerName: cfg.ConsumerName,
		retryBackoff: cfg.RetryBackoff,
		claimTimeout: cfg.ClaimTimeout,
		logger:       cfg.Logger.With("component", "redis-queue", "consumer", cfg.ConsumerName),
	}, nil
}

func (q *Queue) Enqueue(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return fmt.Errorf("%w: nil task", domain.ErrInvalidInput)
	}
	return q.EnqueueBatch(ctx, []*domain.Task{task})
}

// EnqueueBatch writes every body and queue entry in one MULTI.
func (q *Queue) EnqueueBatch(ctx context.Context, tasks []*domain.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	now := time.Now()
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, task := range tasks {
			if task == nil {
				continue
			}
			if err := writeBody(ctx, pipe, task); err != nil {
				return err
			}
			if task.ScheduledFor.After(now) {
				delay(ctx, pipe, task)
			} else {
				publish(ctx, pipe, task.ID)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("enqueue %d tasks: %w", len(tasks), err)
	}
	return nil
}

func writeBody(ctx context.Context, pipe redis.Pipeliner, task *domain.Task) error {
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode task %s: %w", task.ID, err)
	}
	pipe.Set(ctx, taskKey(task.ID), body, bodyTTL)
	return nil
}

func delay(ctx context.Context, pipe redis.Pipeliner, task *domain.Task) {
	pipe.ZAdd(ctx, delayedKey, redis.Z{Score: float64(task.ScheduledFor.UnixMilli()), Member: task.ID})
}

func publish(ctx context.Context, cmd redis.Cmdable, taskID string) *redis.StringCmd {
	return cmd.XAdd(ctx, &redis.XAddArgs{Stream: readyKey, Values: map[string]any{"task_id": taskID}})
}

func (q *Queue) Dequeue(ctx context.Context) (*domain.Task, error) {
	return q.DequeueWithTimeout(ctx, 0)
}

// DequeueWithTimeout promotes due delayed tasks, then prefers abandoned
// messages over new ones. A zero timeout blocks until ctx is done.
func (q *Queue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error) {
	if err := q.promoteDue(ctx, time.Now()); err != nil {
		q.logger.Warn("promote delayed tasks", "error", err)
	}

	if task := q.reclaim(ctx); task != nil {
		return task, nil
	}

	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    groupName,
		Consumer: q.consumerName,
		Streams:  []string{readyKey, ">"},
		Count:    1,
		Block:    time.Duration(timeout) * time.Second,
	}).Result()
	switch {
	case errors.Is(err, redis.Nil), ctx.Err() != nil:
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("read stream: %w", err)
	}
	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil, nil
	}
	return q.claim(ctx, streams[0].Messages[0])
}

// claim records the message against the task and marks it processing.
// Messages whose body has expired are dropped.
func (q *Queue) claim(ctx context.Context, msg redis.XMessage) (*domain.Task, error) {
	id, _ := msg.Values["task_id"].(string)
	task, err := q.GetTask(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		q.logger.Warn("dropping message without task body", "message_id", msg.ID, "task_id", id)
		q.client.XAck(ctx, readyKey, groupName, msg.ID)
		q.client.XDel(ctx, readyKey, msg.ID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	task.MarkProcessing()
	_, err = q.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, claimKey(id), msg.ID, bodyTTL)
		return writeBody(ctx, pipe, task)
	})
	if err != nil {
		return nil, fmt.Errorf("claim task %s: %w", id, err)
	}
	return task, nil
}

// reclaim takes over one message another consumer left unacked past the
// claim timeout. Errors only mean nothing is reclaimed this round.
func (q *Queue) reclaim(ctx context.Context) *domain.Task {
	msgs, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   readyKey,
		Group:    groupName,
		Consumer: q.consumerName,
		MinIdle:  q.claimTimeout,
		Start:    "0-0",
		Count:    1,
	}).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			q.logger.Warn("reclaim abandoned tasks", "error", err)
		}
		return nil
	}
	for _, msg := range msgs {
		task, err := q.claim(ctx, msg)
		if err == nil && task != nil {
			q.logger.Info("reclaimed abandoned task", "task_id", task.ID, "attempts", task.Attempts)
			return task
		}
	}
	return nil
}

// promoteDue moves delayed tasks that are due onto the stream. ZREM
// decides which of several workers publishes a given task.
func (q *Queue) promoteDue(ctx context.Context, now time.Time) error {
	due, err := q.client.ZRangeByScore(ctx, delayedKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return err
	}
	for _, id := range due {
		won, err := q.client.ZRem(ctx, delayedKey, id).Result()
		if err != nil {
			return err
		}
		if won == 1 {
			if err := publish(ctx, q.client, id).Err(); err != nil {
				return fmt.Errorf("publish %s: %w", id, err)
			}
		}
	}
	return nil
}

// settle removes the task's stream message, applies fn and stores the
// result, all in one MULTI.
func (q *Queue) settle(ctx context.Context, taskID string, fn func(pipe redis.Pipeliner, task *domain.Task)) error {
	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	msgID, err := q.client.Get(ctx, claimKey(taskID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if msgID != "" {
			pipe.XAck(ctx, readyKey, groupName, msgID)
			pipe.XDel(ctx, readyKey, msgID)
		}
		pipe.Del(ctx, claimKey(taskID))
		fn(pipe, task)
		return writeBody(ctx, pipe, task)
	})
	return err
}

func (q *Queue) Ack(ctx context.Context, taskID string) error {
	if err := q.settle(ctx, taskID, func(_ redis.Pipeliner, t *domain.Task) { t.MarkCompleted() }); err != nil {
		return fmt.Errorf("ack %s: %w", taskID, err)
	}
	return nil
}

func (q *Queue) Fail(ctx context.Context, taskID, reason string) error {
	if err := q.settle(ctx, taskID, func(_ redis.Pipeliner, t *domain.Task) { t.MarkFailed(reason) }); err != nil {
		return fmt.Errorf("fail %s: %w", taskID, err)
	}
	return nil
}

// Nack parks the task in the delayed set for the retry backoff, or fails
// it when no attempts remain.
func (q *Queue) Nack(ctx context.Context, taskID, reason string) error {
	err := q.settle(ctx, taskID, func(pipe redis.Pipeliner, t *domain.Task) {
		if !t.CanRetry() {
			t.MarkFailed(reason)
			return
		}
		t.Retry(reason, q.retryBackoff)
		delay(ctx, pipe, t)
	})
	if err != nil {
		return fmt.Errorf("nack %s: %w", taskID, err)
	}
	return nil
}

func (q *Queue) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	body, err := q.client.Get(ctx, taskKey(taskID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: task %s", domain.ErrNotFound, taskID)
	}
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", taskID, err)
	}
	var task domain.Task
	if err := json.Unmarshal(body, &task); err != nil {
		return nil, fmt.Errorf("decode task %s: %w", taskID, err)
	}
	return &task, nil
}

// scan visits every stored task body until fn returns false. It walks the
// whole keyspace, which is fine for the operator commands that use it.
func (q *Queue) scan(ctx context.Context, fn func(task *domain.Task) bool) error {
	iter := q.client.Scan(ctx, 0, taskKey("*"), scanBatch).Iterator()
	batch := make([]string, 0, scanBatch)

	flush := func() (bool, error) {
		if len(batch) == 0 {
			return true, nil
		}
		bodies, err := q.client.MGet(ctx, batch...).Result()
		batch = batch[:0]
		if err != nil {
			return false, err
		}
		for _, body := range bodies {
			s, ok := body.(string)
			if !ok {
				continue // expired between SCAN and MGET
			}
			var task domain.Task
			if json.Unmarshal([]byte(s), &task) != nil {
				continue
			}
			if !fn(&task) {
				return false, nil
			}
		}
		return true, nil
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if more, err := flush(); !more {
				return err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan tasks: %w", err)
	}
	_, err := flush()
	return err
}

// ListTasks returns matches in keyspace order, which is not creation order.
func (q *Queue) ListTasks(ctx context.Context, filter driven.TaskFilter) ([]*domain.Task, error) {
	var (
		out     []*domain.Task
		skipped int
	)
	err := q.scan(ctx, func(t *domain.Task) bool {
		if (filter.Status != "" && t.Status != filter.Status) || (filter.Type != "" && t.Type != filter.Type) {
			return true
		}
		if skipped < filter.Offset {
			skipped++
			return true
		}
		out = append(out, t)
		return filter.Limit <= 0 || len(out) < filter.Limit
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*domain.Task{}
	}
	return out, nil
}

func (q *Queue) CancelTask(ctx context.Context, taskID string) error {
	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if task.Status != domain.TaskStatusPending {
		return fmt.Errorf("%w: task %s is %s", domain.ErrConflict, taskID, task.Status)
	}
	task.MarkFailed("cancelled")

	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, delayedKey, taskID)
		return writeBody(ctx, pipe, task)
	})
	return err
}

// PurgeTasks deletes finished bodies. A stream message left behind for a
// purged task is dropped when a worker reads it.
func (q *Queue) PurgeTasks(ctx context.Context, olderThan int) (int, error) {
	cutoff := time.Now().Add(-time.Duration(olderThan) * time.Second)

	var keys []string
	err := q.scan(ctx, func(t *domain.Task) bool {
		finished := t.Status == domain.TaskStatusCompleted || t.Status == domain.TaskStatusFailed
		if finished && t.UpdatedAt.Before(cutoff) {
			keys = append(keys, taskKey(t.ID))
		}
		return true
	})
	if err != nil || len(keys) == 0 {
		return 0, err
	}

	n, err := q.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("purge tasks: %w", err)
	}
	return int(n), nil
}

func (q *Queue) Stats(ctx context.Context) (*driven.QueueStats, error) {
	var stats driven.QueueStats
	now := time.Now()
	err := q.scan(ctx, func(t *domain.Task) bool {
		switch t.Status {
		case domain.TaskStatusPending:
			stats.PendingCount++
			stats.OldestPendingAge = max(stats.OldestPendingAge, int64(now.Sub(t.CreatedAt).Seconds()))
		case domain.TaskStatusProcessing:
			stats.ProcessingCount++
		case domain.TaskStatusCompleted:
			stats.CompletedCount++
		case domain.TaskStatusFailed:
			stats.FailedCount++
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Close is a no-op; the client is shared with the lock and owned by the caller.
func (q *Queue) Close() error { return nil }
