package translation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"vigil/internal/jobs"
)

// Repo owns translation_jobs and translation_batches.
type Repo struct {
	DB *gorm.DB
}

func (r *Repo) WithTx(tx *gorm.DB) *Repo { return &Repo{DB: tx} }

func (r *Repo) CreateBatch(ctx context.Context, b *Batch, rows []Job) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(b).Error; err != nil {
			return fmt.Errorf("create batch: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(&rows, 500).Error; err != nil {
			return fmt.Errorf("create translation jobs: %w", err)
		}
		return nil
	})
}

func (r *Repo) Batch(ctx context.Context, id uuid.UUID) (*Batch, error) {
	var b Batch
	if err := r.DB.WithContext(ctx).Where("id = ?", id).Take(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBatchNotFound
		}
		return nil, fmt.Errorf("get batch %s: %w", id, err)
	}
	return &b, nil
}

// ClaimNext locks up to limit pending rows with SKIP LOCKED and marks them processing.
func (r *Repo) ClaimNext(ctx context.Context, limit int) ([]Job, error) {
	var claimed []Job
	err := r.DB.WithContext(ctx).Raw(`
with cte as (
  select id
  from translation_jobs
  where status = ?
  order by created_at asc, id asc
  limit ?
  for update skip locked
)
update translation_jobs t
set status = ?, attempts = t.attempts + 1, updated_at = now()
from cte
where t.id = cte.id
returning t.*`, StatusPending, limit, StatusProcessing).Scan(&claimed).Error
	if err != nil {
		return nil, fmt.Errorf("claim translation jobs: %w", err)
	}
	return claimed, nil
}

func (r *Repo) MarkCompleted(ctx context.Context, id uint64, result string) error {
	res := r.DB.WithContext(ctx).Exec(`
update translation_jobs
set status = ?, result = ?, error_message = null, completed_at = now(), updated_at = now()
where id = ? and status = ?`, StatusCompleted, result, id, StatusProcessing)
	if res.Error != nil {
		return fmt.Errorf("complete translation job %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("complete translation job %d: %w", id, jobs.ErrNotProcessing)
	}
	return nil
}

func (r *Repo) MarkFailed(ctx context.Context, id uint64, errMsg string) error {
	return r.DB.WithContext(ctx).Exec(`
update translation_jobs
set status = ?, error_message = ?, updated_at = now()
where id = ? and status in (?, ?)`, StatusFailed, errMsg, id, StatusProcessing, StatusFailed).Error
}

// RetryJob requeues a failed row that still has attempts left.
func (r *Repo) RetryJob(ctx context.Context, id uint64) (bool, error) {
	res := r.DB.WithContext(ctx).Exec(`
update translation_jobs
set status = ?, updated_at = now()
where id = ? and status = ? and attempts < max_attempts`, StatusPending, id, StatusFailed)
	if res.Error != nil {
		return false, fmt.Errorf("retry translation job %d: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// CancelPending cancels the batch's pending rows. Rows already processing finish normally.
func (r *Repo) CancelPending(ctx context.Context, batchID uuid.UUID) (int64, error) {
	res := r.DB.WithContext(ctx).Exec(`
update translation_jobs
set status = ?, updated_at = now()
where batch_id = ? and status = ?`, StatusCancelled, batchID, StatusPending)
	if res.Error != nil {
		return 0, fmt.Errorf("cancel batch %s: %w", batchID, res.Error)
	}
	return res.RowsAffected, nil
}

// FinishBatch moves a processing batch to status. Repeated calls are no-ops.
func (r *Repo) FinishBatch(ctx context.Context, batchID uuid.UUID, status BatchStatus) (bool, error) {
	res := r.DB.WithContext(ctx).Exec(`
update translation_batches
set status = ?, completed_at = now()
where id = ? and status = ?`, status, batchID, BatchProcessing)
	if res.Error != nil {
		return false, fmt.Errorf("finish batch %s: %w", batchID, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// GetJobStats counts a batch's rows by status. referenceType is ignored; the table only holds batches.
func (r *Repo) GetJobStats(ctx context.Context, _ string, batchID string) (jobs.Stats, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := r.DB.WithContext(ctx).Model(&Job{}).
		Select("status, count(*) as count").
		Where("batch_id = ?", batchID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return jobs.Stats{}, fmt.Errorf("batch %s stats: %w", batchID, err)
	}

	var s jobs.Stats
	for _, row := range rows {
		s.AddCount(row.Status, row.Count)
	}
	return s, nil
}

func (r *Repo) IsComplete(ctx context.Context, ref jobs.Reference) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&Job{}).
		Where("batch_id = ? and status in ?", ref.ID, []Status{StatusPending, StatusProcessing}).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("batch %s active: %w", ref.ID, err)
	}
	return n == 0, nil
}

// ReleaseStale recovers rows left processing by a process that died mid-job.
// Rows with attempts left go back to pending; the rest fail. It returns the
// batches it touched so their completion can be re-checked.
func (r *Repo) ReleaseStale(ctx context.Context, olderThan time.Duration) ([]uuid.UUID, error) {
	var rows []struct {
		BatchID uuid.UUID
	}
	err := r.DB.WithContext(ctx).Raw(`
update translation_jobs
set status = case when attempts < max_attempts then ? else ? end,
    error_message = case when attempts < max_attempts then error_message else 'abandoned while processing' end,
    updated_at = now()
where status = ? and updated_at < ?
returning batch_id`,
		StatusPending, StatusFailed, StatusProcessing, time.Now().Add(-olderThan)).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("release stale translation jobs: %w", err)
	}

	seen := map[uuid.UUID]bool{}
	var batches []uuid.UUID
	for _, row := range rows {
		if !seen[row.BatchID] {
			seen[row.BatchID] = true
			batches = append(batches, row.BatchID)
		}
	}
	return batches, nil
}

// Cleanup deletes resolved rows last touched before cutoff, then batches left without rows.
func (r *Repo) Cleanup(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(`
delete from translation_jobs
where status in (?, ?, ?) and coalesce(completed_at, updated_at) < ?`,
			StatusCompleted, StatusFailed, StatusCancelled, cutoff)
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected

		return tx.Exec(`
delete from translation_batches b
where b.status <> ? and b.created_at < ?
  and not exists (select 1 from translation_jobs t where t.batch_id = b.id)`,
			BatchProcessing, cutoff).Error
	})
	if err != nil {
		return 0, fmt.Errorf("translation cleanup: %w", err)
	}
	return deleted, nil
}

var _ jobs.StatsSource = (*Repo)(nil)
