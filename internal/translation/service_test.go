package translation

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigil/internal/db/dbtest"
)

func TestService_Cancel(t *testing.T) {
	gdb, mock := dbtest.New(t)
	svc := &Service{Repo: &Repo{DB: gdb}}
	id := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "translation_batches" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "library_id", "status", "total_jobs"}).
			AddRow(id.String(), 3, "processing", 6))
	mock.ExpectExec("update translation_jobs set status = \\$1").
		WithArgs("cancelled", sqlmock.AnyArg(), "pending").
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec("update translation_batches set status = \\$1, completed_at = now\\(\\)").
		WithArgs("cancelled", sqlmock.AnyArg(), "processing").
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := svc.Cancel(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_CancelUnknownBatch(t *testing.T) {
	gdb, mock := dbtest.New(t)
	svc := &Service{Repo: &Repo{DB: gdb}}

	mock.ExpectQuery(`SELECT \* FROM "translation_batches"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := svc.Cancel(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrBatchNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_CreateBatchNeedsTargetLanguage(t *testing.T) {
	svc := &Service{}
	_, err := svc.CreateBatch(context.Background(), CreateBatchRequest{
		LibraryID:      3,
		SourceLanguage: "en",
		Languages:      []string{"EN", " en "},
	})
	assert.ErrorIs(t, err, ErrNoLanguages)
}
