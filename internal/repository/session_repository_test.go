package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/madarij-center/madarij-api/internal/models"
)

func TestSessionMaterializeCreates(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	rows := sqlmock.NewRows([]string{"id"}).AddRow("sess-1")
	mock.ExpectQuery(`INSERT INTO sessions .*ON CONFLICT \(halqa_id, date\) DO NOTHING`).
		WillReturnRows(rows)

	halqaID := "halqa-1"
	session := &models.Session{
		ID:      "sess-1",
		HalqaID: &halqaID,
		Date:    time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC),
		DayType: models.DayTypeNormal,
	}
	created, err := repo.Materialize(context.Background(), session)
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, models.SessionNotStarted, session.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionMaterializeExistingIsNoOp(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectQuery(`INSERT INTO sessions .*ON CONFLICT \(halqa_id, date\) DO NOTHING`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	halqaID := "halqa-1"
	session := &models.Session{
		HalqaID: &halqaID,
		Date:    time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC),
		DayType: models.DayTypeNormal,
	}
	created, err := repo.Materialize(context.Background(), session)
	require.NoError(t, err)
	require.False(t, created)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionTransitionStatusStartSetsStartedAt(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	at := time.Now().UTC()
	mock.ExpectExec(`UPDATE sessions SET status = \$1, started_at = \$2, updated_at = \$3 WHERE id = \$4 AND status = \$5`).
		WithArgs(models.SessionStarted, at, sqlmock.AnyArg(), "sess-1", models.SessionNotStarted).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.TransitionStatus(context.Background(), "sess-1", models.SessionNotStarted, models.SessionStarted, at)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionTransitionStatusRejectsUnknownTarget(t *testing.T) {
	db, _, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	_, err := repo.TransitionStatus(context.Background(), "sess-1", models.SessionStarted, models.SessionNotStarted, time.Now().UTC())
	require.Error(t, err)
}

func TestAttendanceUpsertOverwrites(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "student_id", "session_id", "status", "absence_reason", "recorded_by", "recorded_at", "created_at"}).
		AddRow("att-1", "stu-1", "sess-1", models.AttendancePresent, nil, "user-1", now, now)
	mock.ExpectQuery(`INSERT INTO attendance .*ON CONFLICT \(student_id, session_id\)`).
		WillReturnRows(rows)

	stored, err := repo.Upsert(context.Background(), &models.Attendance{
		StudentID:  "stu-1",
		SessionID:  "sess-1",
		Status:     models.AttendancePresent,
		RecordedBy: "user-1",
	})
	require.NoError(t, err)
	require.Equal(t, models.AttendancePresent, stored.Status)
	require.Equal(t, "att-1", stored.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
