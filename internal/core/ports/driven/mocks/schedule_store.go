package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

var _ driven.ScheduleStore = (*MockScheduleStore)(nil)

// MockScheduleStore keeps schedules in memory. Returned schedules are copies.
type MockScheduleStore struct {
	mu        sync.Mutex
	schedules map[string]domain.Schedule

	// RecordRunErr is returned by RecordRun when set
	RecordRunErr error
	// ListErr is returned by ListSchedules and DueSchedules when set
	ListErr error
}

func NewMockScheduleStore(schedules ...*domain.Schedule) *MockScheduleStore {
	m := &MockScheduleStore{schedules: make(map[string]domain.Schedule)}
	for _, s := range schedules {
		m.schedules[s.ID] = *s
	}
	return m
}

func (m *MockScheduleStore) GetSchedule(ctx context.Context, id string) (*domain.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (m *MockScheduleStore) ListSchedules(ctx context.Context) ([]*domain.Schedule, error) {
	return m.filter(func(domain.Schedule) bool { return true })
}

func (m *MockScheduleStore) DueSchedules(ctx context.Context, now time.Time) ([]*domain.Schedule, error) {
	return m.filter(func(s domain.Schedule) bool { return s.DueAt(now) })
}

func (m *MockScheduleStore) SaveSchedule(ctx context.Context, s *domain.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schedules[s.ID] = *s
	return nil
}

func (m *MockScheduleStore) RecordRun(ctx context.Context, id string, at time.Time, runErr string) error {
	if m.RecordRunErr != nil {
		return m.RecordRunErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.Advance(at, runErr)
	m.schedules[id] = s
	return nil
}

func (m *MockScheduleStore) filter(keep func(domain.Schedule) bool) ([]*domain.Schedule, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Schedule
	for _, s := range m.schedules {
		if keep(s) {
			out = append(out, &s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
