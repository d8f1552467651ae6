// Package worker drains the task queue: it runs ingestion for uploaded
// revisions and the maintenance jobs the scheduler enqueues.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/core/services"
)

// DefaultTaskRetention is how long finished tasks survive a purge_tasks run.
const DefaultTaskRetention = 7 * 24 * time.Hour

const dequeueErrorPause = time.Second

// handler runs one task. Its error decides how the task is settled.
type handler func(ctx context.Context, task *domain.Task, logger *slog.Logger) error

type WorkerConfig struct {
	TaskQueue driven.TaskQueue
	Ingestion driving.IngestionService
	// Maintenance serves reap_stale_revisions. Without it those tasks fail.
	Maintenance driving.MaintenanceService
	// Scheduler, if set, runs for as long as the worker does.
	Scheduler *services.Scheduler
	Logger    *slog.Logger

	Concurrency int
	// DequeueTimeout is in seconds.
	DequeueTimeout int
	TaskRetention  time.Duration
}

type Worker struct {
	taskQueue   driven.TaskQueue
	ingestion   driving.IngestionService
	maintenance driving.MaintenanceService
	scheduler   *services.Scheduler
	handlers    map[domain.TaskType]handler
	logger      *slog.Logger

	concurrency    int
	dequeueTimeout int
	taskRetention  time.Duration

	mu      sync.RWMutex
	running bool
	stop    context.CancelFunc
	done    chan struct{}
}

func NewWorker(cfg WorkerConfig) *Worker {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	w := &Worker{
		taskQueue:      cfg.TaskQueue,
		ingestion:      cfg.Ingestion,
		maintenance:    cfg.Maintenance,
		scheduler:      cfg.Scheduler,
		logger:         cfg.Logger.With("component", "worker"),
		concurrency:    max(cfg.Concurrency, 1),
		dequeueTimeout: cfg.DequeueTimeout,
		taskRetention:  cfg.TaskRetention,
	}
	if w.dequeueTimeout <= 0 {
		w.dequeueTimeout = 5
	}
	if w.taskRetention <= 0 {
		w.taskRetention = DefaultTaskRetention
	}
	w.handlers = map[domain.TaskType]handler{
		domain.TaskTypeProcessRevision: w.processRevision,
		domain.TaskTypeReapStale:       w.reapStale,
		domain.TaskTypePurgeTasks:      w.purgeTasks,
	}
	return w
}

// Start launches the consumers and the scheduler and returns immediately.
// Consumers exit when ctx is cancelled or Stop is called; a task already
// running is allowed to finish.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	polling, stop := context.WithCancel(ctx)
	w.running, w.stop, w.done = true, stop, make(chan struct{})

	w.logger.Info("worker starting", "concurrency", w.concurrency, "dequeue_timeout", w.dequeueTimeout)

	if w.scheduler != nil {
		if err := w.scheduler.EnsureDefaults(ctx); err != nil {
			w.logger.Error("install default schedules", "error", err)
		}
		if err := w.scheduler.Start(ctx); err != nil {
			w.logger.Error("start scheduler", "error", err)
		}
	}

	var g errgroup.Group
	for id := range w.concurrency {
		g.Go(func() error {
			w.consume(ctx, polling, w.logger.With("consumer", id))
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(w.done)
	}()
	return nil
}

// Stop halts polling, waits for in-flight tasks, then stops the scheduler.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.stop()
	done := w.done
	w.mu.Unlock()

	<-done
	if w.scheduler != nil {
		w.scheduler.Stop()
	}
	w.logger.Info("worker stopped")
}

// Wait blocks until every consumer has exited.
func (w *Worker) Wait() {
	w.mu.RLock()
	done := w.done
	w.mu.RUnlock()
	if done != nil {
		<-done
	}
}

// consume dequeues with polling and runs tasks with ctx, so cancelling
// polling alone lets the current task complete.
func (w *Worker) consume(ctx, polling context.Context, logger *slog.Logger) {
	for polling.Err() == nil {
		task, err := w.taskQueue.DequeueWithTimeout(polling, w.dequeueTimeout)
		switch {
		case err != nil && polling.Err() == nil:
			logger.Error("dequeue", "error", err)
			select {
			case <-time.After(dequeueErrorPause):
			case <-polling.Done():
			}
		case task != nil:
			w.processTask(ctx, task, logger)
		}
	}
}

func (w *Worker) processTask(ctx context.Context, task *domain.Task, logger *slog.Logger) {
	logger = logger.With("task_id", task.ID, "task_type", task.Type, "attempt", task.Attempts)
	logger.Info("processing task")

	start := time.Now()
	err := w.run(ctx, task, logger)
	w.settle(context.WithoutCancel(ctx), task, err, time.Since(start), logger)
}

func (w *Worker) run(ctx context.Context, task *domain.Task, logger *slog.Logger) error {
	h, ok := w.handlers[task.Type]
	if !ok {
		return fmt.Errorf("%w: unknown task type %q", domain.ErrInvalidInput, task.Type)
	}
	return h(ctx, task, logger)
}

// settle acks success, nacks retryable failures and fails the rest.
func (w *Worker) settle(ctx context.Context, task *domain.Task, err error, took time.Duration, logger *slog.Logger) {
	var settleErr error
	switch {
	case err == nil:
		logger.Info("task completed", "duration", took)
		settleErr = w.taskQueue.Ack(ctx, task.ID)
	case domain.IsRetryable(err):
		logger.Warn("task failed, will retry", "duration", took, "error", err)
		settleErr = w.taskQueue.Nack(ctx, task.ID, err.Error())
	default:
		logger.Error("task failed permanently", "duration", took, "error", err)
		settleErr = w.taskQueue.Fail(ctx, task.ID, err.Error())
	}
	if settleErr != nil {
		logger.Error("settle task", "error", settleErr)
	}
}

// processRevision treats a revision claimed by another worker, or one
// that already left the claimable states, as done.
func (w *Worker) processRevision(ctx context.Context, task *domain.Task, logger *slog.Logger) error {
	revisionID := task.RevisionID()
	if revisionID == "" {
		return fmt.Errorf("%w: task has no revision_id", domain.ErrInvalidInput)
	}

	rev, err := w.ingestion.Process(ctx, revisionID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrConflict):
		logger.Info("revision handled elsewhere", "revision_id", revisionID, "error", err)
		return nil
	case errors.Is(err, domain.ErrInvalidTransition) && rev != nil && rev.State != domain.StateFailed:
		logger.Info("revision not claimable", "revision_id", revisionID, "state", rev.State)
		return nil
	}
	return err
}

func (w *Worker) reapStale(ctx context.Context, _ *domain.Task, logger *slog.Logger) error {
	if w.maintenance == nil {
		return fmt.Errorf("%w: no maintenance service configured", domain.ErrInvalidInput)
	}
	n, err := w.maintenance.ReapStale(ctx)
	if err == nil && n > 0 {
		logger.Info("reaped stale revisions", "count", n)
	}
	return err
}

func (w *Worker) purgeTasks(ctx context.Context, _ *domain.Task, logger *slog.Logger) error {
	n, err := w.taskQueue.PurgeTasks(ctx, int(w.taskRetention.Seconds()))
	if err != nil {
		return err
	}
	logger.Info("purged finished tasks", "count", n, "older_than", w.taskRetention)
	return nil
}

type Health struct {
	Running     bool   `json:"running"`
	QueueHealth bool   `json:"queue_health"`
	Error       string `json:"error,omitempty"`
}

func (w *Worker) Health(ctx context.Context) Health {
	w.mu.RLock()
	h := Health{Running: w.running}
	w.mu.RUnlock()

	if err := w.taskQueue.Ping(ctx); err != nil {
		h.Error = err.Error()
	} else {
		h.QueueHealth = true
	}
	return h
}
