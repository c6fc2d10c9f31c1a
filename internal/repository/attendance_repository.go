package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/madarij-center/madarij-api/internal/models"
)

// AttendanceRepository handles persistence of attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Upsert inserts or overwrites the attendance row for (student, session).
// The compound unique key makes re-submission converge on the latest values.
func (r *AttendanceRepository) Upsert(ctx context.Context, record *models.Attendance) (*models.Attendance, error) {
	now := time.Now().UTC()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.RecordedAt.IsZero() {
		record.RecordedAt = now
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	const query = `INSERT INTO attendance (id, student_id, session_id, status, absence_reason, recorded_by, recorded_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (student_id, session_id)
DO UPDATE SET status = EXCLUDED.status, absence_reason = EXCLUDED.absence_reason,
recorded_by = EXCLUDED.recorded_by, recorded_at = EXCLUDED.recorded_at
RETURNING id, student_id, session_id, status, absence_reason, recorded_by, recorded_at, created_at`
	var stored models.Attendance
	if err := r.db.GetContext(ctx, &stored, query,
		record.ID, record.StudentID, record.SessionID, record.Status,
		record.AbsenceReason, record.RecordedBy, record.RecordedAt, record.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("upsert attendance: %w", err)
	}
	return &stored, nil
}

// ListBySession returns attendance rows for a session with student metadata.
func (r *AttendanceRepository) ListBySession(ctx context.Context, sessionID string) ([]models.AttendanceRow, error) {
	const query = `SELECT a.id, a.student_id, a.session_id, a.status, a.absence_reason,
a.recorded_by, a.recorded_at, a.created_at,
s.name AS student_name, s.stage AS student_stage
FROM attendance a
JOIN students s ON s.id = a.student_id
WHERE a.session_id = $1
ORDER BY s.name`
	var rows []models.AttendanceRow
	if err := r.db.SelectContext(ctx, &rows, query, sessionID); err != nil {
		return nil, fmt.Errorf("list session attendance: %w", err)
	}
	return rows, nil
}

// StatsBySession recomputes the per-status tally for a session from the
// stored rows. Recomputation rather than incremental counters keeps the
// stats drift-free across overwrites.
func (r *AttendanceRepository) StatsBySession(ctx context.Context, sessionID string) (models.AttendanceStats, error) {
	const query = `SELECT status, COUNT(*) AS count FROM attendance WHERE session_id = $1 GROUP BY status`
	rows, err := r.db.QueryxContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session attendance stats: %w", err)
	}
	defer rows.Close()

	stats := models.AttendanceStats{}
	for rows.Next() {
		var status models.AttendanceStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan attendance stat: %w", err)
		}
		stats[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("session attendance stats: %w", err)
	}
	return stats, nil
}
