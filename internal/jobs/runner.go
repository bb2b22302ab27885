package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// Runner claims due jobs and hands them to the processors in its Registry.
type Runner struct {
	Store     Store
	Registry  *Registry
	Tracker   *Tracker
	Log       *slog.Logger
	JobType   string // empty claims every type
	BatchSize int
}

// Summary describes one tick.
type Summary struct {
	Claimed   int
	Completed int
	Failed    int
	Retried   int
}

// Tick runs one pass and logs what it did. It is the scheduler entry point.
func (r *Runner) Tick(ctx context.Context) error {
	sum, err := r.RunOnce(ctx)
	if err != nil {
		return err
	}
	if sum.Claimed > 0 {
		r.logger().Debug("job tick",
			"type", r.JobType,
			"claimed", sum.Claimed,
			"completed", sum.Completed,
			"failed", sum.Failed,
			"retried", sum.Retried,
		)
	}
	return nil
}

// RunOnce claims up to BatchSize jobs, processes them in order and checks
// every reference group the batch touched for completion.
func (r *Runner) RunOnce(ctx context.Context) (Summary, error) {
	limit := r.BatchSize
	if limit <= 0 {
		limit = 10
	}

	claimed, err := r.Store.ClaimDue(ctx, r.JobType, limit)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{Claimed: len(claimed)}
	var touched []Reference
	seen := map[Reference]bool{}

	for i := range claimed {
		job := &claimed[i]
		r.process(ctx, job, &sum)

		if ref, ok := job.Reference(); ok && !seen[ref] {
			seen[ref] = true
			touched = append(touched, ref)
		}
	}

	if r.Tracker != nil {
		for _, ref := range touched {
			if _, err := r.Tracker.Check(ctx, ref); err != nil {
				r.logger().Error("finalize reference failed", "reference", ref.String(), "err", err)
			}
		}
	}
	return sum, nil
}

func (r *Runner) process(ctx context.Context, job *Job, sum *Summary) {
	result, err := r.dispatch(ctx, job)
	if err == nil {
		var raw json.RawMessage
		if raw, err = encodeResult(result); err == nil {
			if err = r.Store.MarkCompleted(ctx, job.ID, raw); err == nil {
				sum.Completed++
				return
			}
			r.logger().Error("mark completed failed", "job_id", job.ID, "err", err)
			return
		}
	}

	r.logger().Warn("job failed",
		"job_id", job.ID,
		"type", job.Type,
		"attempt", job.Attempts,
		"max_attempts", job.MaxAttempts,
		"err", err,
	)

	if markErr := r.Store.MarkFailed(ctx, job.ID, err.Error()); markErr != nil {
		r.logger().Error("mark failed failed", "job_id", job.ID, "err", markErr)
		return
	}

	if job.Attempts < job.MaxAttempts {
		ok, retryErr := r.Store.RetryJob(ctx, job.ID)
		if retryErr != nil {
			r.logger().Error("requeue failed", "job_id", job.ID, "err", retryErr)
		}
		if ok {
			sum.Retried++
			return
		}
	}
	sum.Failed++
}

func (r *Runner) dispatch(ctx context.Context, job *Job) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger().Error("processor panic", "job_id", job.ID, "panic", rec, "stack", string(debug.Stack()))
			err = fmt.Errorf("processor panic: %v", rec)
		}
	}()
	return r.Registry.Dispatch(ctx, job)
}

func (r *Runner) logger() *slog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return slog.Default()
}

func encodeResult(v any) (json.RawMessage, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return t, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return b, nil
}
