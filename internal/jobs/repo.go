package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"
)

var now = time.Now

// StatsSource answers completion questions about a reference group.
type StatsSource interface {
	IsComplete(ctx context.Context, ref Reference) (bool, error)
	GetJobStats(ctx context.Context, referenceType, referenceID string) (Stats, error)
}

// Store is the part of the job table the processor loop depends on.
type Store interface {
	StatsSource
	ClaimDue(ctx context.Context, jobType string, limit int) ([]Job, error)
	MarkCompleted(ctx context.Context, id uint64, result json.RawMessage) error
	MarkFailed(ctx context.Context, id uint64, errMsg string) error
	RetryJob(ctx context.Context, id uint64) (bool, error)
}

// Repo is the Postgres-backed job store.
type Repo struct {
	DB *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{DB: db}
}

// WithTx returns a Repo whose writes join tx.
func (r *Repo) WithTx(tx *gorm.DB) *Repo {
	return &Repo{DB: tx}
}

func (r *Repo) CreateJob(ctx context.Context, p Payload, opts Options) (*Job, error) {
	j, err := NewJob(p, opts)
	if err != nil {
		return nil, err
	}
	if err := r.DB.WithContext(ctx).Create(j).Error; err != nil {
		return nil, fmt.Errorf("create %s job: %w", j.Type, err)
	}
	return j, nil
}

// CreateJobs inserts all payloads with the same options in one transaction.
func (r *Repo) CreateJobs(ctx context.Context, payloads []Payload, opts Options) ([]Job, error) {
	if len(payloads) == 0 {
		return nil, nil
	}
	rows := make([]Job, 0, len(payloads))
	for _, p := range payloads {
		j, err := NewJob(p, opts)
		if err != nil {
			return nil, err
		}
		rows = append(rows, *j)
	}
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&rows, 500).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create jobs: %w", err)
	}
	return rows, nil
}

func (r *Repo) Get(ctx context.Context, id uint64) (*Job, error) {
	var j Job
	if err := r.DB.WithContext(ctx).First(&j, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get job %d: %w", id, err)
	}
	return &j, nil
}

// GetPendingJobs returns due pending jobs, highest priority first. An empty jobType matches all types.
func (r *Repo) GetPendingJobs(ctx context.Context, jobType string, limit int) ([]Job, error) {
	q := r.DB.WithContext(ctx).
		Where("status = ? AND scheduled_at <= ?", StatusPending, now())
	if jobType != "" {
		q = q.Where("type = ?", jobType)
	}

	var out []Job
	if err := q.Order("priority desc, scheduled_at asc").Limit(limit).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("get pending jobs: %w", err)
	}
	return out, nil
}

// MarkProcessing moves a pending job to processing and counts the attempt.
// It reports false when the job was not pending.
func (r *Repo) MarkProcessing(ctx context.Context, id uint64) (bool, error) {
	res := r.DB.WithContext(ctx).Exec(`
update jobs
set status = ?, attempts = attempts + 1, last_attempt_at = now(), updated_at = now()
where id = ? and status = ?`, StatusProcessing, id, StatusPending)
	if res.Error != nil {
		return false, fmt.Errorf("mark job %d processing: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ClaimDue locks up to limit due pending jobs with SKIP LOCKED and marks them
// processing in the same statement, so concurrent instances never share a job.
func (r *Repo) ClaimDue(ctx context.Context, jobType string, limit int) ([]Job, error) {
	typeFilter := ""
	args := []any{StatusPending}
	if jobType != "" {
		typeFilter = "and type = ?"
		args = append(args, jobType)
	}
	args = append(args, limit, StatusProcessing)

	var claimed []Job
	err := r.DB.WithContext(ctx).Raw(`
with cte as (
  select id
  from jobs
  where status = ? and scheduled_at <= now() `+typeFilter+`
  order by priority desc, scheduled_at asc
  limit ?
  for update skip locked
)
update jobs
set status = ?, attempts = jobs.attempts + 1, last_attempt_at = now(), updated_at = now()
from cte
where jobs.id = cte.id
returning jobs.*`, args...).Scan(&claimed).Error
	if err != nil {
		return nil, fmt.Errorf("claim jobs: %w", err)
	}

	sortByPriority(claimed)
	return claimed, nil
}

func (r *Repo) MarkCompleted(ctx context.Context, id uint64, result json.RawMessage) error {
	res := r.DB.WithContext(ctx).Exec(`
update jobs
set status = ?, result = ?, error_message = null, completed_at = now(), updated_at = now()
where id = ? and status = ?`, StatusCompleted, nullableJSON(result), id, StatusProcessing)
	if res.Error != nil {
		return fmt.Errorf("mark job %d completed: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("mark job %d completed: %w", id, ErrNotProcessing)
	}
	return nil
}

// MarkFailed records the error. Calling it again on a failed job only replaces the message.
func (r *Repo) MarkFailed(ctx context.Context, id uint64, errMsg string) error {
	res := r.DB.WithContext(ctx).Exec(`
update jobs
set status = ?, error_message = ?, updated_at = now()
where id = ? and status in (?, ?)`, StatusFailed, errMsg, id, StatusProcessing, StatusFailed)
	if res.Error != nil {
		return fmt.Errorf("mark job %d failed: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("mark job %d failed: %w", id, ErrNotProcessing)
	}
	return nil
}

// RetryJob puts a failed job back to pending while it has attempts left.
// A false return means the failure is terminal.
func (r *Repo) RetryJob(ctx context.Context, id uint64) (bool, error) {
	res := r.DB.WithContext(ctx).Exec(`
update jobs
set status = ?, updated_at = now()
where id = ? and status = ? and attempts < max_attempts`, StatusPending, id, StatusFailed)
	if res.Error != nil {
		return false, fmt.Errorf("retry job %d: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// GetJobStats counts jobs per status. Empty filters match everything.
func (r *Repo) GetJobStats(ctx context.Context, referenceType, referenceID string) (Stats, error) {
	q := r.DB.WithContext(ctx).Model(&Job{}).Select("status, count(*) as count")
	if referenceType != "" {
		q = q.Where("reference_type = ?", referenceType)
	}
	if referenceID != "" {
		q = q.Where("reference_id = ?", referenceID)
	}

	var rows []struct {
		Status string
		Count  int64
	}
	if err := q.Group("status").Scan(&rows).Error; err != nil {
		return Stats{}, fmt.Errorf("job stats: %w", err)
	}

	var s Stats
	for _, row := range rows {
		s.AddCount(row.Status, row.Count)
	}
	return s, nil
}

func (r *Repo) HasActiveJobs(ctx context.Context, ref Reference) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&Job{}).
		Where("reference_type = ? and reference_id = ? and status in ?",
			ref.Type, ref.ID, []Status{StatusPending, StatusProcessing}).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("active jobs for %s: %w", ref, err)
	}
	return n > 0, nil
}

func (r *Repo) IsComplete(ctx context.Context, ref Reference) (bool, error) {
	active, err := r.HasActiveJobs(ctx, ref)
	if err != nil {
		return false, err
	}
	return !active, nil
}

// DeleteResolved drops the finished rows of a reference group so a new run of
// the same reference starts from empty counts. Active rows are kept.
func (r *Repo) DeleteResolved(ctx context.Context, ref Reference) (int64, error) {
	res := r.DB.WithContext(ctx).Exec(`
delete from jobs
where reference_type = ? and reference_id = ? and status in (?, ?)`,
		ref.Type, ref.ID, StatusCompleted, StatusFailed)
	if res.Error != nil {
		return 0, fmt.Errorf("delete resolved jobs for %s: %w", ref, res.Error)
	}
	return res.RowsAffected, nil
}

// ReleaseStale recovers jobs left processing by a process that died mid-job.
// Jobs with attempts left go back to pending; the rest fail.
func (r *Repo) ReleaseStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	res := r.DB.WithContext(ctx).Exec(`
update jobs
set status = case when attempts < max_attempts then ? else ? end,
    error_message = case when attempts < max_attempts then error_message else 'abandoned while processing' end,
    updated_at = now()
where status = ? and last_attempt_at < ?`,
		StatusPending, StatusFailed, StatusProcessing, now().Add(-olderThan))
	if res.Error != nil {
		return 0, fmt.Errorf("release stale jobs: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func sortByPriority(js []Job) {
	sort.SliceStable(js, func(a, b int) bool {
		if js[a].Priority != js[b].Priority {
			return js[a].Priority > js[b].Priority
		}
		return js[a].ScheduledAt.Before(js[b].ScheduledAt)
	})
}

// nullableJSON maps an empty document to SQL NULL.
func nullableJSON(b json.RawMessage) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
