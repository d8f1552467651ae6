package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

var _ driven.ScheduleStore = (*ScheduleStore)(nil)

const scheduleColumns = `id, name, job, every_seconds, enabled, next_run, last_run, last_error`

// ScheduleStore keeps the maintenance schedule in the schedules table.
type ScheduleStore struct {
	db *DB
}

func NewScheduleStore(db *DB) *ScheduleStore {
	return &ScheduleStore{db: db}
}

func (s *ScheduleStore) GetSchedule(ctx context.Context, id string) (*domain.Schedule, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE id = $1`, id)
	sched, err := scanSchedule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	return sched, nil
}

func (s *ScheduleStore) ListSchedules(ctx context.Context) ([]*domain.Schedule, error) {
	return s.query(ctx, `SELECT `+scheduleColumns+` FROM schedules ORDER BY id`)
}

func (s *ScheduleStore) DueSchedules(ctx context.Context, now time.Time) ([]*domain.Schedule, error) {
	return s.query(ctx, `
		SELECT `+scheduleColumns+`
		FROM schedules
		WHERE enabled AND next_run <= $1
		ORDER BY next_run`, now)
}

func (s *ScheduleStore) SaveSchedule(ctx context.Context, sched *domain.Schedule) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO schedules (`+scheduleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			job = EXCLUDED.job,
			every_seconds = EXCLUDED.every_seconds,
			enabled = EXCLUDED.enabled,
			next_run = EXCLUDED.next_run,
			last_run = EXCLUDED.last_run,
			last_error = EXCLUDED.last_error`,
		sched.ID,
		sched.Name,
		string(sched.Job),
		int64(sched.Every/time.Second),
		sched.Enabled,
		sched.NextRun,
		NullTime(sched.LastRun),
		sched.LastError,
	)
	if err != nil {
		return fmt.Errorf("save schedule: %w", err)
	}
	return nil
}

func (s *ScheduleStore) RecordRun(ctx context.Context, id string, at time.Time, runErr string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE schedules
		SET last_run = $2,
			next_run = $2 + every_seconds * INTERVAL '1 second',
			last_error = $3
		WHERE id = $1`, id, at, runErr)
	if err != nil {
		return fmt.Errorf("record schedule run: %w", err)
	}
	return requireRow(result)
}

func (s *ScheduleStore) query(ctx context.Context, query string, args ...any) ([]*domain.Schedule, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	var out []*domain.Schedule
	for rows.Next() {
		sched, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sched)
	}
	return out, rows.Err()
}

func scanSchedule(row rowScanner) (*domain.Schedule, error) {
	var (
		sched   domain.Schedule
		every   int64
		lastRun sql.NullTime
	)
	err := row.Scan(
		&sched.ID,
		&sched.Name,
		&sched.Job,
		&every,
		&sched.Enabled,
		&sched.NextRun,
		&lastRun,
		&sched.LastError,
	)
	if err != nil {
		return nil, err
	}
	sched.Every = time.Duration(every) * time.Second
	sched.LastRun = TimePtr(lastRun)
	return &sched, nil
}
