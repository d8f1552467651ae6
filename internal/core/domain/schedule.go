package domain

import "time"

// Built-in maintenance schedules.
const (
	ScheduleRevisionReaper = "revision-reaper"
	ScheduleTaskPurge      = "task-purge"
)

// Schedule is a maintenance job enqueued every Every.
// Operators may disable a schedule; a disabled schedule is never due.
type Schedule struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Job       TaskType      `json:"job"`
	Every     time.Duration `json:"every"`
	Enabled   bool          `json:"enabled"`
	NextRun   time.Time     `json:"next_run"`
	LastRun   *time.Time    `json:"last_run,omitempty"`
	LastError string        `json:"last_error,omitempty"`
}

// NewSchedule returns an enabled schedule whose first run is one period away.
func NewSchedule(id, name string, job TaskType, every time.Duration) *Schedule {
	return &Schedule{
		ID:      id,
		Name:    name,
		Job:     job,
		Every:   every,
		Enabled: true,
		NextRun: time.Now().Add(every),
	}
}

// DueAt reports whether the schedule should fire at now.
func (s *Schedule) DueAt(now time.Time) bool {
	return s.Enabled && !now.Before(s.NextRun)
}

// Advance records a run at now and moves NextRun one period forward.
// runErr is kept for operators; an empty string clears the previous error.
func (s *Schedule) Advance(now time.Time, runErr string) {
	s.LastRun = &now
	s.NextRun = now.Add(s.Every)
	s.LastError = runErr
}

// Task builds the queue task for one run of the schedule.
func (s *Schedule) Task() *Task {
	return NewTask(s.Job, map[string]string{"schedule_id": s.ID})
}

// DefaultSchedules returns the maintenance schedule installed on first start.
func DefaultSchedules() []*Schedule {
	return []*Schedule{
		NewSchedule(ScheduleRevisionReaper, "Stale revision reaper", TaskTypeReapStale, 5*time.Minute),
		NewSchedule(ScheduleTaskPurge, "Finished task purge", TaskTypePurgeTasks, 24*time.Hour),
	}
}
