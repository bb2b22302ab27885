package app

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigil/internal/db/dbtest"
	"vigil/internal/jobs"
	"vigil/internal/translation"
)

func TestStaleRecovery_FinalizesBatchWhoseLastRowFailed(t *testing.T) {
	gdb, mock := dbtest.New(t)
	batch := uuid.New()
	translations := &translation.Repo{DB: gdb}

	var finalized []jobs.Outcome
	tracker := jobs.NewTracker(nil)
	tracker.RegisterSource(translation.ReferenceType, translations,
		func(_ context.Context, ref jobs.Reference, o jobs.Outcome, _ jobs.Stats) error {
			assert.Equal(t, batch.String(), ref.ID)
			finalized = append(finalized, o)
			return nil
		})

	s := &staleRecovery{
		Jobs:         jobs.NewRepo(gdb),
		Translations: translations,
		Tracker:      tracker,
		OlderThan:    15 * time.Minute,
		Log:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	mock.ExpectExec("update jobs set status = case when attempts < max_attempts").
		WithArgs("pending", "failed", "processing", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("update translation_jobs set status = case when attempts < max_attempts").
		WithArgs("pending", "failed", "processing", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"batch_id"}).AddRow(batch.String()))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "translation_jobs" WHERE batch_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT status, count\(\*\) as count FROM "translation_jobs" WHERE batch_id = \$1`).
		WithArgs(batch.String()).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).AddRow("failed", 3))

	require.NoError(t, s.Tick(context.Background()))
	assert.Equal(t, []jobs.Outcome{jobs.OutcomeFailed}, finalized)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStaleRecovery_ActiveBatchIsLeftAlone(t *testing.T) {
	gdb, mock := dbtest.New(t)
	translations := &translation.Repo{DB: gdb}

	tracker := jobs.NewTracker(nil)
	tracker.RegisterSource(translation.ReferenceType, translations,
		func(context.Context, jobs.Reference, jobs.Outcome, jobs.Stats) error {
			t.Fatal("batch with pending rows must not finalize")
			return nil
		})

	s := &staleRecovery{
		Jobs:         jobs.NewRepo(gdb),
		Translations: translations,
		Tracker:      tracker,
		OlderThan:    15 * time.Minute,
		Log:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	mock.ExpectExec("update jobs set status = case").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery("update translation_jobs set status = case").
		WillReturnRows(sqlmock.NewRows([]string{"batch_id"}).AddRow(uuid.NewString()))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "translation_jobs"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	require.NoError(t, s.Tick(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
