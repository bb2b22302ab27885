package campaign

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigil/internal/db/dbtest"
)

func TestRepo_SubscriberNotFound(t *testing.T) {
	gdb, mock := dbtest.New(t)
	repo := &Repo{DB: gdb}

	mock.ExpectQuery(`SELECT \* FROM "subscribers"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.Subscriber(context.Background(), 7)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_MarkVerifiedKeepsFirstTime(t *testing.T) {
	gdb, mock := dbtest.New(t)
	repo := &Repo{DB: gdb}
	at := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)

	mock.ExpectExec("update subscribers set verified_at = \\$1 where id = \\$2 and verified_at is null").
		WithArgs(at, 7).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.MarkVerified(context.Background(), 7, at))
	assert.NoError(t, mock.ExpectationsWereMet())
}
