package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/madarij-center/madarij-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestStudentTransitionStatusApplies(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	givenAt := time.Now().UTC()
	mock.ExpectExec(`UPDATE students SET application_status = \$1, updated_at = \$2, form_given_at = \$3 WHERE id = \$4 AND application_status = \$5`).
		WithArgs(models.ApplicationFormGiven, sqlmock.AnyArg(), givenAt, "stu-1", models.ApplicationNew).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.TransitionStatus(context.Background(), "stu-1", models.ApplicationNew, StatusPatch{
		Status:      models.ApplicationFormGiven,
		FormGivenAt: &givenAt,
	})
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentTransitionStatusStale(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	// Zero rows affected: the stored status no longer matches the expected
	// pre-state, so the CAS must report failure instead of clobbering.
	mock.ExpectExec(`UPDATE students SET application_status = \$1, updated_at = \$2 WHERE id = \$3 AND application_status = \$4`).
		WithArgs(models.ApplicationFormSubmitted, sqlmock.AnyArg(), "stu-1", models.ApplicationFormGiven).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.TransitionStatus(context.Background(), "stu-1", models.ApplicationFormGiven, StatusPatch{
		Status: models.ApplicationFormSubmitted,
	})
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentTransitionStatusClearsHalqa(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec(`UPDATE students SET application_status = \$1, updated_at = \$2, halqa_id = NULL WHERE id = \$3 AND application_status = \$4`).
		WithArgs(models.ApplicationPending, sqlmock.AnyArg(), "stu-1", models.ApplicationInterviewScheduled).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.TransitionStatus(context.Background(), "stu-1", models.ApplicationInterviewScheduled, StatusPatch{
		Status:     models.ApplicationPending,
		ClearHalqa: true,
	})
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountAcceptedInHalqa(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows([]string{"count"}).AddRow(12)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM students WHERE halqa_id = \$1 AND application_status = \$2`).
		WithArgs("halqa-1", models.ApplicationAccepted).
		WillReturnRows(rows)

	count, err := repo.CountAcceptedInHalqa(context.Background(), "halqa-1")
	require.NoError(t, err)
	require.Equal(t, 12, count)
	require.NoError(t, mock.ExpectationsWereMet())
}
