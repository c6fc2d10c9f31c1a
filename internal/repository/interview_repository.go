package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/madarij-center/madarij-api/internal/models"
)

// InterviewRepository handles persistence of interview reservations.
type InterviewRepository struct {
	db *sqlx.DB
}

// NewInterviewRepository constructs the repository.
func NewInterviewRepository(db *sqlx.DB) *InterviewRepository {
	return &InterviewRepository{db: db}
}

const interviewColumns = `id, student_id, scheduled_date, day_of_week, time_slot, status, result,
notes, scheduled_by, conducted_at, created_at, updated_at`

// FindByID returns an interview by its ID.
func (r *InterviewRepository) FindByID(ctx context.Context, id string) (*models.Interview, error) {
	query := fmt.Sprintf(`SELECT %s FROM interviews WHERE id = $1`, interviewColumns)
	var interview models.Interview
	if err := r.db.GetContext(ctx, &interview, query, id); err != nil {
		return nil, err
	}
	return &interview, nil
}

// FindOpenByStudent returns the student's open (scheduled or rescheduled)
// interview, or sql.ErrNoRows.
func (r *InterviewRepository) FindOpenByStudent(ctx context.Context, studentID string) (*models.Interview, error) {
	query := fmt.Sprintf(`SELECT %s FROM interviews
WHERE student_id = $1 AND status IN ($2, $3)
ORDER BY scheduled_date LIMIT 1`, interviewColumns)
	var interview models.Interview
	if err := r.db.GetContext(ctx, &interview, query, studentID, models.InterviewScheduled, models.InterviewRescheduled); err != nil {
		return nil, err
	}
	return &interview, nil
}

// ListUpcoming returns open interviews from the given date onward with
// candidate metadata.
func (r *InterviewRepository) ListUpcoming(ctx context.Context, from time.Time) ([]models.InterviewDetail, error) {
	const query = `SELECT i.id, i.student_id, i.scheduled_date, i.day_of_week, i.time_slot, i.status, i.result,
i.notes, i.scheduled_by, i.conducted_at, i.created_at, i.updated_at,
s.name AS student_name, s.stage AS student_stage
FROM interviews i
JOIN students s ON s.id = i.student_id
WHERE i.scheduled_date >= $1 AND i.status IN ($2, $3)
ORDER BY i.scheduled_date, i.time_slot`
	var interviews []models.InterviewDetail
	if err := r.db.SelectContext(ctx, &interviews, query, from, models.InterviewScheduled, models.InterviewRescheduled); err != nil {
		return nil, fmt.Errorf("list upcoming interviews: %w", err)
	}
	return interviews, nil
}

// Reserve creates the interview only while the (date, slot) reservation
// count is below capacity. The count check and the insert run in one
// transaction under a per-(date, slot) advisory lock: read-committed
// snapshots alone would let two sessions both count below capacity and both
// insert, so the lock serializes contenders for the same slot. Exactly one
// caller wins the last opening, the rest see reserved = false.
func (r *InterviewRepository) Reserve(ctx context.Context, interview *models.Interview, capacity int) (reserved bool, err error) {
	now := time.Now().UTC()
	if interview.ID == "" {
		interview.ID = uuid.NewString()
	}
	interview.Status = models.InterviewScheduled
	interview.CreatedAt = now
	interview.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("reserve interview slot: %w", err)
	}
	defer func() {
		if !reserved || err != nil {
			tx.Rollback() //nolint:errcheck
		}
	}()

	const lockQuery = `SELECT pg_advisory_xact_lock(hashtext($1 || '|' || $2))`
	if _, err = tx.ExecContext(ctx, lockQuery,
		interview.ScheduledDate.Format("2006-01-02"), interview.TimeSlot); err != nil {
		return false, fmt.Errorf("lock interview slot: %w", err)
	}

	const query = `INSERT INTO interviews (id, student_id, scheduled_date, day_of_week, time_slot, status, result,
notes, scheduled_by, conducted_at, created_at, updated_at)
SELECT $1, $2, $3, $4, $5, $6, NULL, $7, $8, NULL, $9, $10
WHERE (SELECT COUNT(*) FROM interviews
       WHERE scheduled_date = $3 AND time_slot = $5 AND status IN ($11, $12)) < $13
RETURNING id`
	var insertedID string
	err = tx.QueryRowxContext(ctx, query,
		interview.ID, interview.StudentID, interview.ScheduledDate, interview.DayOfWeek,
		interview.TimeSlot, models.InterviewScheduled, interview.Notes, interview.ScheduledBy,
		interview.CreatedAt, interview.UpdatedAt,
		models.InterviewScheduled, models.InterviewRescheduled, capacity,
	).Scan(&insertedID)
	if err == sql.ErrNoRows {
		err = nil
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reserve interview slot: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("reserve interview slot: %w", err)
	}
	return true, nil
}

// SetResult records the evaluation outcome and closes the interview. CAS on
// the open status so two conductors cannot both finalize.
func (r *InterviewRepository) SetResult(ctx context.Context, id string, result models.InterviewResult, notes *string, at time.Time) (bool, error) {
	const query = `UPDATE interviews
SET status = $1, result = $2, notes = COALESCE($3, notes), conducted_at = $4, updated_at = $5
WHERE id = $6 AND status IN ($7, $8)`
	res, err := r.db.ExecContext(ctx, query,
		models.InterviewCompleted, result, notes, at, time.Now().UTC(),
		id, models.InterviewScheduled, models.InterviewRescheduled)
	if err != nil {
		return false, fmt.Errorf("set interview result: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set interview result: %w", err)
	}
	return affected == 1, nil
}

// Cancel marks an open interview cancelled.
func (r *InterviewRepository) Cancel(ctx context.Context, id string) (bool, error) {
	const query = `UPDATE interviews SET status = $1, updated_at = $2
WHERE id = $3 AND status IN ($4, $5)`
	res, err := r.db.ExecContext(ctx, query,
		models.InterviewCancelled, time.Now().UTC(),
		id, models.InterviewScheduled, models.InterviewRescheduled)
	if err != nil {
		return false, fmt.Errorf("cancel interview: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("cancel interview: %w", err)
	}
	return affected == 1, nil
}
