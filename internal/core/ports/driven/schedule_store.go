package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// ScheduleStore persists the maintenance schedule. Schedules are operator
// configuration and outlive the queue tasks they produce.
type ScheduleStore interface {
	GetSchedule(ctx context.Context, id string) (*domain.Schedule, error)
	ListSchedules(ctx context.Context) ([]*domain.Schedule, error)

	// SaveSchedule inserts or replaces a schedule.
	SaveSchedule(ctx context.Context, s *domain.Schedule) error

	// DueSchedules returns enabled schedules whose next run is at or before now.
	DueSchedules(ctx context.Context, now time.Time) ([]*domain.Schedule, error)

	// RecordRun stores a run at the given time and pushes the next run one
	// period later. runErr is empty on success.
	RecordRun(ctx context.Context, id string, at time.Time, runErr string) error
}
