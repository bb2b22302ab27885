package translation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"vigil/internal/content"
	"vigil/internal/jobs"
)

type Service struct {
	Repo      *Repo
	Contents  *content.Repo
	Retention time.Duration
	Log       *slog.Logger
}

type CreateBatchRequest struct {
	LibraryID      uint64   `json:"library_id"`
	SourceLanguage string   `json:"source_language"`
	Languages      []string `json:"languages"`
	Overwrite      bool     `json:"overwrite"`
}

// Progress is a batch and its job counts.
type Progress struct {
	Batch *Batch     `json:"batch"`
	Stats jobs.Stats `json:"stats"`
	Done  bool       `json:"done"`
}

// CreateBatch queues one job per source day and target language.
func (s *Service) CreateBatch(ctx context.Context, req CreateBatchRequest) (*Batch, error) {
	source := strings.ToLower(strings.TrimSpace(req.SourceLanguage))
	if source == "" {
		source = "en"
	}
	langs := normalizeLanguages(req.Languages, source)
	if len(langs) == 0 {
		return nil, ErrNoLanguages
	}

	days, err := s.Contents.ListByLanguage(ctx, req.LibraryID, source)
	if err != nil {
		return nil, err
	}
	if len(days) == 0 {
		return nil, ErrNoContent
	}

	b := &Batch{
		ID:              uuid.New(),
		LibraryID:       req.LibraryID,
		SourceLanguage:  source,
		TargetLanguages: langs,
		Overwrite:       req.Overwrite,
		Status:          BatchProcessing,
		TotalJobs:       len(days) * len(langs),
	}

	rows := make([]Job, 0, b.TotalJobs)
	for _, d := range days {
		for _, lang := range langs {
			rows = append(rows, Job{
				BatchID:         b.ID,
				LibraryID:       req.LibraryID,
				SourceContentID: d.ID,
				TargetLanguage:  lang,
				Overwrite:       req.Overwrite,
				Status:          StatusPending,
				MaxAttempts:     jobs.DefaultMaxAttempts,
			})
		}
	}

	if err := s.Repo.CreateBatch(ctx, b, rows); err != nil {
		return nil, err
	}
	s.logger().Info("translation batch created", "batch_id", b.ID, "library_id", b.LibraryID, "jobs", b.TotalJobs)
	return b, nil
}

// Cancel stops the pending part of a batch and marks it cancelled.
func (s *Service) Cancel(ctx context.Context, batchID uuid.UUID) (int64, error) {
	if _, err := s.Repo.Batch(ctx, batchID); err != nil {
		return 0, err
	}
	n, err := s.Repo.CancelPending(ctx, batchID)
	if err != nil {
		return 0, err
	}
	if _, err := s.Repo.FinishBatch(ctx, batchID, BatchCancelled); err != nil {
		return n, err
	}
	s.logger().Info("translation batch cancelled", "batch_id", batchID, "cancelled_jobs", n)
	return n, nil
}

func (s *Service) Progress(ctx context.Context, batchID uuid.UUID) (Progress, error) {
	b, err := s.Repo.Batch(ctx, batchID)
	if err != nil {
		return Progress{}, err
	}
	stats, err := s.Repo.GetJobStats(ctx, ReferenceType, batchID.String())
	if err != nil {
		return Progress{}, err
	}
	return Progress{Batch: b, Stats: stats, Done: stats.Pending+stats.Processing == 0}, nil
}

// Cleanup is the scheduled sweep of resolved rows older than the retention.
func (s *Service) Cleanup(ctx context.Context) error {
	n, err := s.Repo.Cleanup(ctx, time.Now().Add(-s.Retention))
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger().Info("translation jobs cleaned up", "deleted", n)
	}
	return nil
}

// Finalize is the completion hook for translation batches.
func (s *Service) Finalize(ctx context.Context, ref jobs.Reference, outcome jobs.Outcome, stats jobs.Stats) error {
	id, err := uuid.Parse(ref.ID)
	if err != nil {
		return fmt.Errorf("bad batch reference %q: %w", ref.ID, err)
	}
	status := BatchCompleted
	if outcome == jobs.OutcomeFailed {
		status = BatchFailed
	}
	moved, err := s.Repo.FinishBatch(ctx, id, status)
	if err != nil {
		return err
	}
	if moved {
		s.logger().Info("translation batch finished",
			"batch_id", id,
			"status", status,
			"completed", stats.Completed,
			"failed", stats.Failed,
			"cancelled", stats.Cancelled,
		)
	}
	return nil
}

func (s *Service) logger() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}

func normalizeLanguages(in []string, source string) []string {
	seen := map[string]bool{source: true}
	var out []string
	for _, l := range in {
		l = strings.ToLower(strings.TrimSpace(l))
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}
