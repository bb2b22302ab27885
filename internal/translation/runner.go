package translation

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"vigil/internal/jobs"
)

// Store is the part of Repo the runner drives.
type Store interface {
	ClaimNext(ctx context.Context, limit int) ([]Job, error)
	MarkCompleted(ctx context.Context, id uint64, result string) error
	MarkFailed(ctx context.Context, id uint64, errMsg string) error
	RetryJob(ctx context.Context, id uint64) (bool, error)
}

// Runner is the translation loop. It claims few rows per tick to stay under provider rate limits.
type Runner struct {
	Store     Store
	Processor *Processor
	Tracker   *jobs.Tracker
	Log       *slog.Logger
	BatchSize int
}

func (r *Runner) Tick(ctx context.Context) error {
	sum, err := r.RunOnce(ctx)
	if err != nil {
		return err
	}
	if sum.Claimed > 0 {
		r.logger().Debug("translation tick",
			"claimed", sum.Claimed,
			"completed", sum.Completed,
			"failed", sum.Failed,
			"retried", sum.Retried,
		)
	}
	return nil
}

func (r *Runner) RunOnce(ctx context.Context) (jobs.Summary, error) {
	limit := r.BatchSize
	if limit <= 0 {
		limit = 1
	}
	claimed, err := r.Store.ClaimNext(ctx, limit)
	if err != nil {
		return jobs.Summary{}, err
	}

	sum := jobs.Summary{Claimed: len(claimed)}
	seen := map[string]bool{}
	for i := range claimed {
		j := &claimed[i]
		r.process(ctx, j, &sum)
		seen[j.BatchID.String()] = true
	}

	if r.Tracker != nil {
		for id := range seen {
			if _, err := r.Tracker.Check(ctx, jobs.Reference{Type: ReferenceType, ID: id}); err != nil {
				r.logger().Error("finalize batch failed", "batch_id", id, "err", err)
			}
		}
	}
	return sum, nil
}

func (r *Runner) process(ctx context.Context, j *Job, sum *jobs.Summary) {
	result, err := r.run(ctx, j)
	if err == nil {
		if err := r.Store.MarkCompleted(ctx, j.ID, result); err != nil {
			r.logger().Error("mark translation completed", "translation_job_id", j.ID, "err", err)
			return
		}
		sum.Completed++
		return
	}

	r.logger().Warn("translation job failed",
		"translation_job_id", j.ID,
		"batch_id", j.BatchID,
		"target_language", j.TargetLanguage,
		"attempt", j.Attempts,
		"err", err,
	)
	if markErr := r.Store.MarkFailed(ctx, j.ID, err.Error()); markErr != nil {
		r.logger().Error("mark translation failed", "translation_job_id", j.ID, "err", markErr)
		return
	}
	if j.Attempts < j.MaxAttempts {
		ok, retryErr := r.Store.RetryJob(ctx, j.ID)
		if retryErr != nil {
			r.logger().Error("requeue translation", "translation_job_id", j.ID, "err", retryErr)
		}
		if ok {
			sum.Retried++
			return
		}
	}
	sum.Failed++
}

func (r *Runner) run(ctx context.Context, j *Job) (result string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger().Error("translation panic", "translation_job_id", j.ID, "panic", rec, "stack", string(debug.Stack()))
			err = fmt.Errorf("processor panic: %v", rec)
		}
	}()
	return r.Processor.Process(ctx, j)
}

func (r *Runner) logger() *slog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return slog.Default()
}
