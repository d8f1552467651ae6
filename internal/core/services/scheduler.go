package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// SchedulerLockName is the distributed lock held while one instance enqueues
// due maintenance jobs.
const SchedulerLockName = "sercha-rag:scheduler"

// SchedulerConfig wires a Scheduler.
type SchedulerConfig struct {
	Store     driven.ScheduleStore
	TaskQueue driven.TaskQueue
	// Lock keeps several worker processes from enqueuing the same run.
	// Nil is fine for a single worker.
	Lock   driven.DistributedLock
	Logger *slog.Logger

	PollInterval time.Duration // default 30s
	LockTTL      time.Duration // default 60s
	// LockRequired skips a cycle when the lock backend errors instead of
	// running it unlocked.
	LockRequired bool
}

// Scheduler turns the persisted maintenance schedule into queue tasks.
// It only enqueues; workers run the jobs.
type Scheduler struct {
	store        driven.ScheduleStore
	queue        driven.TaskQueue
	lock         driven.DistributedLock
	logger       *slog.Logger
	interval     time.Duration
	lockTTL      time.Duration
	lockRequired bool
	now          func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewScheduler(cfg SchedulerConfig) *Scheduler {
	s := &Scheduler{
		store:        cfg.Store,
		queue:        cfg.TaskQueue,
		lock:         cfg.Lock,
		logger:       cfg.Logger,
		interval:     cfg.PollInterval,
		lockTTL:      cfg.LockTTL,
		lockRequired: cfg.LockRequired,
		now:          time.Now,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "scheduler")
	if s.interval <= 0 {
		s.interval = 30 * time.Second
	}
	if s.lockTTL <= 0 {
		s.lockTTL = 2 * s.interval
	}
	return s
}

// Start runs a cycle immediately and then every poll interval until Stop is
// called or ctx ends. Starting a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)

	s.logger.Info("scheduler started", "poll_interval", s.interval)
	return nil
}

// Stop halts the loop and waits for an in-flight cycle to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("scheduler stopped")
}

// Running reports whether the loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.tick(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// tick enqueues due schedules while holding the scheduler lock and returns
// how many tasks were enqueued.
func (s *Scheduler) tick(ctx context.Context) int {
	release, ok := s.acquire(ctx)
	if !ok {
		return 0
	}
	defer release()
	return s.enqueueDue(ctx)
}

// acquire takes the scheduler lock. ok is false when this cycle must be
// skipped; release is always safe to call when ok is true.
func (s *Scheduler) acquire(ctx context.Context) (release func(), ok bool) {
	noop := func() {}
	if s.lock == nil {
		return noop, true
	}

	held, err := s.lock.Acquire(ctx, SchedulerLockName, s.lockTTL)
	switch {
	case err != nil && s.lockRequired:
		s.logger.Warn("lock unavailable, skipping cycle", "error", err)
		return nil, false
	case err != nil:
		s.logger.Warn("lock unavailable, running unlocked", "error", err)
		return noop, true
	case !held:
		s.logger.Debug("lock held by another instance")
		return nil, false
	}

	return func() {
		// The cycle's ctx may already be cancelled by Stop.
		if err := s.lock.Release(context.WithoutCancel(ctx), SchedulerLockName); err != nil {
			s.logger.Warn("release lock", "error", err)
		}
	}, true
}

// enqueueDue enqueues one task per due schedule in a single batch, then
// records the outcome on every schedule involved.
func (s *Scheduler) enqueueDue(ctx context.Context) int {
	now := s.now()
	due, err := s.store.DueSchedules(ctx, now)
	if err != nil {
		s.logger.Error("list due schedules", "error", err)
		return 0
	}

	var (
		fired []*domain.Schedule
		tasks []*domain.Task
	)
	for _, sched := range due {
		// The store filters already; re-check against our clock.
		if !sched.DueAt(now) {
			continue
		}
		fired = append(fired, sched)
		tasks = append(tasks, sched.Task())
	}
	if len(tasks) == 0 {
		return 0
	}

	runErr := ""
	if err := s.queue.EnqueueBatch(ctx, tasks); err != nil {
		s.logger.Error("enqueue scheduled jobs", "count", len(tasks), "error", err)
		runErr = err.Error()
	}

	for i, sched := range fired {
		if err := s.store.RecordRun(ctx, sched.ID, now, runErr); err != nil {
			s.logger.Warn("record schedule run", "schedule_id", sched.ID, "error", err)
		}
		if runErr == "" {
			s.logger.Info("enqueued scheduled job",
				"schedule_id", sched.ID,
				"task_id", tasks[i].ID,
				"job", sched.Job,
			)
		}
	}

	if runErr != "" {
		return 0
	}
	return len(tasks)
}

// EnsureDefaults installs missing built-in schedules. Existing rows are
// left alone so operator changes survive restarts.
func (s *Scheduler) EnsureDefaults(ctx context.Context) error {
	existing, err := s.store.ListSchedules(ctx)
	if err != nil {
		return fmt.Errorf("list schedules: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, sched := range existing {
		have[sched.ID] = true
	}

	for _, sched := range domain.DefaultSchedules() {
		if have[sched.ID] {
			continue
		}
		if err := s.store.SaveSchedule(ctx, sched); err != nil {
			return fmt.Errorf("install schedule %s: %w", sched.ID, err)
		}
		s.logger.Info("installed schedule", "schedule_id", sched.ID, "every", sched.Every)
	}
	return nil
}

// Schedules lists the maintenance schedule.
func (s *Scheduler) Schedules(ctx context.Context) ([]*domain.Schedule, error) {
	return s.store.ListSchedules(ctx)
}

// SetEnabled turns a schedule on or off. Re-enabling does not fire missed
// runs early; the next run stays where it was or moves one period ahead.
func (s *Scheduler) SetEnabled(ctx context.Context, id string, enabled bool) (*domain.Schedule, error) {
	sched, err := s.store.GetSchedule(ctx, id)
	if err != nil {
		return nil, err
	}
	if sched.Enabled == enabled {
		return sched, nil
	}

	sched.Enabled = enabled
	if now := s.now(); enabled && sched.NextRun.Before(now) {
		sched.NextRun = now.Add(sched.Every)
	}
	if err := s.store.SaveSchedule(ctx, sched); err != nil {
		return nil, err
	}
	s.logger.Info("schedule updated", "schedule_id", id, "enabled", enabled)
	return sched, nil
}

// TriggerNow enqueues one run of a schedule outside its timetable. The
// regular next run is unaffected; disabled schedules can still be triggered.
func (s *Scheduler) TriggerNow(ctx context.Context, id string) (*domain.Task, error) {
	sched, err := s.store.GetSchedule(ctx, id)
	if err != nil {
		return nil, err
	}

	task := sched.Task()
	if err := s.queue.Enqueue(ctx, task); err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", sched.Job, err)
	}
	s.logger.Info("triggered schedule", "schedule_id", id, "task_id", task.ID)
	return task, nil
}
