// Package jobstest provides an in-memory job store for tests.
package jobstest

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"vigil/internal/jobs"
)

// MemStore mirrors the state transitions of jobs.Repo without a database.
type MemStore struct {
	Now func() time.Time

	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]*jobs.Job
}

func NewMemStore() *MemStore {
	return &MemStore{Now: time.Now, rows: make(map[uint64]*jobs.Job)}
}

func (m *MemStore) CreateJob(_ context.Context, p jobs.Payload, opts jobs.Options) (*jobs.Job, error) {
	j, err := jobs.NewJob(p, opts)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	j.ID = m.nextID
	j.CreatedAt = m.Now()
	j.UpdatedAt = j.CreatedAt
	cp := *j
	m.rows[j.ID] = &cp
	return j, nil
}

// Job returns a copy of the stored row.
func (m *MemStore) Job(id uint64) (jobs.Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.rows[id]
	if !ok {
		return jobs.Job{}, false
	}
	return *j, true
}

func (m *MemStore) All() []jobs.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]jobs.Job, 0, len(m.rows))
	for _, j := range m.rows {
		out = append(out, *j)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out
}

func (m *MemStore) ClaimDue(_ context.Context, jobType string, limit int) ([]jobs.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.Now()
	var due []*jobs.Job
	for _, j := range m.rows {
		if j.Status != jobs.StatusPending || j.ScheduledAt.After(now) {
			continue
		}
		if jobType != "" && j.Type != jobType {
			continue
		}
		due = append(due, j)
	}
	sort.Slice(due, func(a, b int) bool {
		if due[a].Priority != due[b].Priority {
			return due[a].Priority > due[b].Priority
		}
		if !due[a].ScheduledAt.Equal(due[b].ScheduledAt) {
			return due[a].ScheduledAt.Before(due[b].ScheduledAt)
		}
		return due[a].ID < due[b].ID
	})
	if len(due) > limit {
		due = due[:limit]
	}

	out := make([]jobs.Job, 0, len(due))
	for _, j := range due {
		t := now
		j.Status = jobs.StatusProcessing
		j.Attempts++
		j.LastAttemptAt = &t
		j.UpdatedAt = now
		out = append(out, *j)
	}
	return out, nil
}

func (m *MemStore) MarkCompleted(_ context.Context, id uint64, result json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.rows[id]
	if !ok {
		return jobs.ErrNotFound
	}
	if j.Status != jobs.StatusProcessing {
		return jobs.ErrNotProcessing
	}
	now := m.Now()
	j.Status = jobs.StatusCompleted
	j.Result = result
	j.ErrorMessage = nil
	j.CompletedAt = &now
	j.UpdatedAt = now
	return nil
}

func (m *MemStore) MarkFailed(_ context.Context, id uint64, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.rows[id]
	if !ok {
		return jobs.ErrNotFound
	}
	if j.Status != jobs.StatusProcessing && j.Status != jobs.StatusFailed {
		return jobs.ErrNotProcessing
	}
	j.Status = jobs.StatusFailed
	j.ErrorMessage = &errMsg
	j.UpdatedAt = m.Now()
	return nil
}

func (m *MemStore) RetryJob(_ context.Context, id uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.rows[id]
	if !ok || j.Status != jobs.StatusFailed || j.Attempts >= j.MaxAttempts {
		return false, nil
	}
	j.Status = jobs.StatusPending
	j.UpdatedAt = m.Now()
	return true, nil
}

func (m *MemStore) GetJobStats(_ context.Context, referenceType, referenceID string) (jobs.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var s jobs.Stats
	for _, j := range m.rows {
		if !matches(j, referenceType, referenceID) {
			continue
		}
		s.AddCount(string(j.Status), 1)
	}
	return s, nil
}

func (m *MemStore) IsComplete(_ context.Context, ref jobs.Reference) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, j := range m.rows {
		if matches(j, ref.Type, ref.ID) && j.Status.IsActive() {
			return false, nil
		}
	}
	return true, nil
}

func matches(j *jobs.Job, referenceType, referenceID string) bool {
	if referenceType != "" && (j.ReferenceType == nil || *j.ReferenceType != referenceType) {
		return false
	}
	if referenceID != "" && (j.ReferenceID == nil || *j.ReferenceID != referenceID) {
		return false
	}
	return true
}

var _ jobs.Store = (*MemStore)(nil)
