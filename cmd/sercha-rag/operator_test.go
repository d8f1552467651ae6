package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func init() {
	color.NoColor = true
}

func TestWriteSchedules(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	ran := now.Add(-time.Hour)

	healthy := domain.NewSchedule("revision-reaper", "Reaper", domain.TaskTypeReapStale, 5*time.Minute)
	healthy.NextRun = now.Add(time.Minute)
	healthy.LastRun = &ran

	failing := domain.NewSchedule("task-purge", "Purge", domain.TaskTypePurgeTasks, 24*time.Hour)
	failing.NextRun = now.Add(time.Hour)
	failing.LastError = "queue unavailable"

	paused := domain.NewSchedule("paused", "Paused", domain.TaskTypePurgeTasks, time.Hour)
	paused.Enabled = false

	var buf bytes.Buffer
	writeSchedules(&buf, []*domain.Schedule{healthy, failing, paused}, now)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "reap_stale_revisions")
	assert.Contains(t, lines[1], ran.Format(time.RFC3339))
	assert.True(t, strings.HasSuffix(lines[1], "ok"))
	assert.Contains(t, lines[2], "never")
	assert.True(t, strings.HasSuffix(lines[2], "failing: queue unavailable"))
	assert.True(t, strings.HasSuffix(lines[3], "disabled"))
}

func TestScheduleState_Due(t *testing.T) {
	now := time.Now()
	s := domain.NewSchedule("s", "s", domain.TaskTypeReapStale, time.Minute)
	s.NextRun = now.Add(-time.Second)

	assert.Equal(t, "due", scheduleState(s, now))
}

func TestTaskFilter(t *testing.T) {
	f, err := taskFilter("failed", "process_revision", 10)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, f.Status)
	assert.Equal(t, domain.TaskTypeProcessRevision, f.Type)
	assert.Equal(t, 10, f.Limit)

	_, err = taskFilter("done", "", 10)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = taskFilter("", "", -1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestTaskStatus(t *testing.T) {
	retrying := &domain.Task{Status: domain.TaskStatusPending, Error: "rate limited"}
	assert.Equal(t, "pending (retry: rate limited)", taskStatus(retrying))

	failed := &domain.Task{Status: domain.TaskStatusFailed, Error: "unsupported file type"}
	assert.Equal(t, "failed: unsupported file type", taskStatus(failed))

	assert.Equal(t, "pending", taskStatus(&domain.Task{Status: domain.TaskStatusPending}))
}
