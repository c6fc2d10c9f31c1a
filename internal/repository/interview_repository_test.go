package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/madarij-center/madarij-api/internal/models"
)

func TestInterviewReserveWins(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInterviewRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock\(hashtext\(\$1 \|\| '\|' \|\| \$2\)\)`).
		WithArgs("2026-09-05", "بعد العصر ١").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`INSERT INTO interviews .*WHERE \(SELECT COUNT\(\*\) FROM interviews`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("int-1"))
	mock.ExpectCommit()

	interview := &models.Interview{
		ID:            "int-1",
		StudentID:     "stu-1",
		ScheduledDate: time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC),
		DayOfWeek:     models.DaySaturday,
		TimeSlot:      "بعد العصر ١",
		ScheduledBy:   "user-1",
	}
	reserved, err := repo.Reserve(context.Background(), interview, 1)
	require.NoError(t, err)
	require.True(t, reserved)
	require.Equal(t, models.InterviewScheduled, interview.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

// The loser of two contenders for the last opening runs its count check only
// after the winner's transaction commits and releases the per-slot advisory
// lock, so it sees the slot at capacity and inserts nothing.
func TestInterviewReserveLoserSeesFullSlot(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInterviewRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
		WithArgs("2026-09-05", "بعد العصر ١").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`INSERT INTO interviews .*WHERE \(SELECT COUNT\(\*\) FROM interviews`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	interview := &models.Interview{
		StudentID:     "stu-2",
		ScheduledDate: time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC),
		DayOfWeek:     models.DaySaturday,
		TimeSlot:      "بعد العصر ١",
		ScheduledBy:   "user-1",
	}
	reserved, err := repo.Reserve(context.Background(), interview, 1)
	require.NoError(t, err)
	require.False(t, reserved)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInterviewReserveRollsBackOnLockError(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInterviewRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	interview := &models.Interview{
		StudentID:     "stu-3",
		ScheduledDate: time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC),
		DayOfWeek:     models.DaySaturday,
		TimeSlot:      "بعد العصر ١",
		ScheduledBy:   "user-1",
	}
	reserved, err := repo.Reserve(context.Background(), interview, 1)
	require.Error(t, err)
	require.False(t, reserved)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInterviewSetResultClosedAlready(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInterviewRepository(db)

	mock.ExpectExec(`UPDATE interviews`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.SetResult(context.Background(), "int-1", models.ResultAccepted, nil, time.Now().UTC())
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}
