package domain

import (
	"testing"
	"time"
)

func TestSchedule_DueAt(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		enabled bool
		nextRun time.Time
		want    bool
	}{
		{"enabled and past", true, now.Add(-time.Hour), true},
		{"enabled at boundary", true, now, true},
		{"enabled and future", true, now.Add(time.Hour), false},
		{"disabled and past", false, now.Add(-time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Schedule{Enabled: tt.enabled, NextRun: tt.nextRun}
			if got := s.DueAt(now); got != tt.want {
				t.Errorf("DueAt = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSchedule_Advance(t *testing.T) {
	s := NewSchedule("s", "s", TaskTypeReapStale, 30*time.Minute)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s.Advance(at, "queue unavailable")
	if s.LastRun == nil || !s.LastRun.Equal(at) {
		t.Fatalf("LastRun = %v", s.LastRun)
	}
	if want := at.Add(30 * time.Minute); !s.NextRun.Equal(want) {
		t.Errorf("NextRun = %v, want %v", s.NextRun, want)
	}
	if s.LastError != "queue unavailable" {
		t.Errorf("LastError = %q", s.LastError)
	}

	s.Advance(at.Add(time.Hour), "")
	if s.LastError != "" {
		t.Errorf("expected a clean run to clear LastError, got %q", s.LastError)
	}
}

func TestSchedule_Task(t *testing.T) {
	s := NewSchedule("task-purge", "Purge", TaskTypePurgeTasks, time.Hour)
	task := s.Task()

	if task.Type != TaskTypePurgeTasks {
		t.Errorf("Type = %s", task.Type)
	}
	if task.Payload["schedule_id"] != "task-purge" {
		t.Errorf("payload = %v", task.Payload)
	}
	if task.Status != TaskStatusPending {
		t.Errorf("Status = %s", task.Status)
	}
}

func TestDefaultSchedules(t *testing.T) {
	jobs := make(map[string]TaskType)
	for _, s := range DefaultSchedules() {
		jobs[s.ID] = s.Job
		if !s.Enabled {
			t.Errorf("expected %s to be enabled", s.ID)
		}
		if s.DueAt(time.Now()) {
			t.Errorf("expected %s to wait one period before its first run", s.ID)
		}
	}
	if jobs[ScheduleRevisionReaper] != TaskTypeReapStale {
		t.Errorf("missing reaper schedule: %v", jobs)
	}
	if jobs[ScheduleTaskPurge] != TaskTypePurgeTasks {
		t.Errorf("missing purge schedule: %v", jobs)
	}
}
