package jobs

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigil/internal/db/dbtest"
)

func TestRepo_MarkProcessing(t *testing.T) {
	gdb, mock := dbtest.New(t)
	repo := NewRepo(gdb)

	mock.ExpectExec("update jobs set status = \\$1, attempts = attempts \\+ 1").
		WithArgs("processing", 7, "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.MarkProcessing(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_MarkProcessing_NotPending(t *testing.T) {
	gdb, mock := dbtest.New(t)
	repo := NewRepo(gdb)

	mock.ExpectExec("update jobs").
		WithArgs("processing", 7, "pending").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.MarkProcessing(context.Background(), 7)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepo_MarkCompleted(t *testing.T) {
	gdb, mock := dbtest.New(t)
	repo := NewRepo(gdb)

	mock.ExpectExec("update jobs set status = \\$1, result = \\$2, error_message = null, completed_at = now\\(\\)").
		WithArgs("completed", `{"ok":true}`, 3, "processing").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkCompleted(context.Background(), 3, json.RawMessage(`{"ok":true}`))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_MarkCompleted_NotProcessing(t *testing.T) {
	gdb, mock := dbtest.New(t)
	repo := NewRepo(gdb)

	mock.ExpectExec("update jobs").
		WithArgs("completed", nil, 3, "processing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkCompleted(context.Background(), 3, nil)
	assert.ErrorIs(t, err, ErrNotProcessing)
}

func TestRepo_MarkFailed(t *testing.T) {
	gdb, mock := dbtest.New(t)
	repo := NewRepo(gdb)

	mock.ExpectExec("update jobs set status = \\$1, error_message = \\$2").
		WithArgs("failed", "smtp down", 3, "processing", "failed").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkFailed(context.Background(), 3, "smtp down"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_RetryJob(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{"attempts left", 1, true},
		{"budget spent", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gdb, mock := dbtest.New(t)
			repo := NewRepo(gdb)

			mock.ExpectExec("where id = \\$2 and status = \\$3 and attempts < max_attempts").
				WithArgs("pending", 9, "failed").
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			ok, err := repo.RetryJob(context.Background(), 9)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestRepo_ClaimDue(t *testing.T) {
	gdb, mock := dbtest.New(t)
	repo := NewRepo(gdb)

	early := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)

	rows := sqlmock.NewRows([]string{"id", "type", "status", "priority", "scheduled_at", "attempts", "max_attempts"}).
		AddRow(2, "marketing_email", "processing", 0, late, 1, 3).
		AddRow(1, "marketing_email", "processing", 5, late, 1, 3).
		AddRow(3, "marketing_email", "processing", 0, early, 2, 3)

	mock.ExpectQuery("with cte as").
		WithArgs("pending", "marketing_email", 5, "processing").
		WillReturnRows(rows)

	claimed, err := repo.ClaimDue(context.Background(), "marketing_email", 5)
	require.NoError(t, err)
	require.Len(t, claimed, 3)

	assert.Equal(t, uint64(1), claimed[0].ID)
	assert.Equal(t, uint64(3), claimed[1].ID)
	assert.Equal(t, uint64(2), claimed[2].ID)
	assert.Equal(t, StatusProcessing, claimed[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_ClaimDue_AllTypes(t *testing.T) {
	gdb, mock := dbtest.New(t)
	repo := NewRepo(gdb)

	mock.ExpectQuery("for update skip locked").
		WithArgs("pending", 10, "processing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	claimed, err := repo.ClaimDue(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Empty(t, claimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_GetJobStats(t *testing.T) {
	gdb, mock := dbtest.New(t)
	repo := NewRepo(gdb)

	mock.ExpectQuery("SELECT status, count\\(\\*\\) as count FROM \"jobs\" WHERE reference_type = \\$1 AND reference_id = \\$2").
		WithArgs("marketing_email", "42").
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("completed", 2).
			AddRow("failed", 1))

	stats, err := repo.GetJobStats(context.Background(), "marketing_email", "42")
	require.NoError(t, err)
	assert.Equal(t, Stats{Completed: 2, Failed: 1}, stats)
	assert.Equal(t, int64(3), stats.Total())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_IsComplete(t *testing.T) {
	gdb, mock := dbtest.New(t)
	repo := NewRepo(gdb)
	ref := Reference{Type: "marketing_email", ID: "42"}

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM \"jobs\"").
		WithArgs("marketing_email", "42", "pending", "processing").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM \"jobs\"").
		WithArgs("marketing_email", "42", "pending", "processing").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	done, err := repo.IsComplete(context.Background(), ref)
	require.NoError(t, err)
	assert.False(t, done)

	done, err = repo.IsComplete(context.Background(), ref)
	require.NoError(t, err)
	assert.True(t, done)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_Get_NotFound(t *testing.T) {
	gdb, mock := dbtest.New(t)
	repo := NewRepo(gdb)

	mock.ExpectQuery("SELECT \\* FROM \"jobs\"").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.Get(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepo_ReleaseStale(t *testing.T) {
	gdb, mock := dbtest.New(t)
	repo := NewRepo(gdb)

	mock.ExpectExec("set status = case when attempts < max_attempts").
		WithArgs("pending", "failed", "processing", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := repo.ReleaseStale(context.Background(), 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestRepo_DeleteResolved(t *testing.T) {
	gdb, mock := dbtest.New(t)
	repo := NewRepo(gdb)

	mock.ExpectExec("delete from jobs where reference_type = \\$1 and reference_id = \\$2").
		WithArgs("marketing_email", "42", "completed", "failed").
		WillReturnResult(sqlmock.NewResult(0, 7))

	n, err := repo.DeleteResolved(context.Background(), Reference{Type: "marketing_email", ID: "42"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
