package reminder

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigil/internal/db/dbtest"
	"vigil/internal/jobs"
)

var subscriptionColumns = []string{
	"id", "subscriber_id", "campaign_id", "frequency", "days_of_week",
	"time_preference", "timezone", "status", "next_reminder_utc",
}

func TestDispatcher_RunOnce(t *testing.T) {
	gdb, mock := dbtest.New(t)
	now := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)
	due := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	d := &Dispatcher{
		DB:   gdb,
		Subs: &Repo{DB: gdb},
		Jobs: jobs.NewRepo(gdb),
		Now:  func() time.Time { return now },
	}

	mock.ExpectBegin()
	mock.ExpectQuery("select \\* from subscriptions where status = \\$1 and next_reminder_utc is not null").
		WithArgs("active", sqlmock.AnyArg(), 100).
		WillReturnRows(sqlmock.NewRows(subscriptionColumns).
			AddRow(5, 7, 3, "daily", nil, "09:00", "UTC", "active", due))
	mock.ExpectQuery(`INSERT INTO "jobs"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec("update subscriptions set next_reminder_utc = \\$1, last_reminder_at = \\$2").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := d.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDispatcher_RunOnceNothingDue(t *testing.T) {
	gdb, mock := dbtest.New(t)
	d := &Dispatcher{DB: gdb, Subs: &Repo{DB: gdb}, Jobs: jobs.NewRepo(gdb), BatchSize: 10}

	mock.ExpectBegin()
	mock.ExpectQuery("select \\* from subscriptions").
		WithArgs("active", sqlmock.AnyArg(), 10).
		WillReturnRows(sqlmock.NewRows(subscriptionColumns))
	mock.ExpectCommit()

	n, err := d.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDispatcher_RollsBackOnInsertError(t *testing.T) {
	gdb, mock := dbtest.New(t)
	due := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	d := &Dispatcher{DB: gdb, Subs: &Repo{DB: gdb}, Jobs: jobs.NewRepo(gdb)}

	mock.ExpectBegin()
	mock.ExpectQuery("select \\* from subscriptions").
		WillReturnRows(sqlmock.NewRows(subscriptionColumns).
			AddRow(5, 7, 3, "daily", nil, "09:00", "UTC", "active", due))
	mock.ExpectQuery(`INSERT INTO "jobs"`).WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err := d.RunOnce(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}
