package app

import (
	"context"
	"log/slog"
	"time"

	"vigil/internal/jobs"
	"vigil/internal/translation"
)

// staleRecovery hands rows claimed by a dead process back to the loops. It
// runs at boot and on its own task.
type staleRecovery struct {
	Jobs         *jobs.Repo
	Translations *translation.Repo
	Tracker      *jobs.Tracker
	OlderThan    time.Duration
	Log          *slog.Logger
}

func (s *staleRecovery) Tick(ctx context.Context) error {
	n, err := s.Jobs.ReleaseStale(ctx, s.OlderThan)
	if err != nil {
		return err
	}
	if n > 0 {
		s.Log.Warn("released stale jobs", "count", n)
	}

	batches, err := s.Translations.ReleaseStale(ctx, s.OlderThan)
	if err != nil {
		return err
	}
	if len(batches) > 0 {
		s.Log.Warn("released stale translation jobs", "batches", len(batches))
	}
	// Rows that ran out of attempts may have been the last active ones.
	for _, id := range batches {
		ref := jobs.Reference{Type: translation.ReferenceType, ID: id.String()}
		if _, err := s.Tracker.Check(ctx, ref); err != nil {
			s.Log.Error("finalize after release", "reference", ref.String(), "err", err)
		}
	}
	return nil
}
