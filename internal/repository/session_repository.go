package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/madarij-center/madarij-api/internal/models"
)

// SessionRepository handles persistence of session instances.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, halqa_id, date, day_type, status, friday_activity, friday_stage,
time_block, notes, started_at, ended_at, created_at, updated_at`

// FindByID returns a session by its ID.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	query := fmt.Sprintf(`SELECT %s FROM sessions WHERE id = $1`, sessionColumns)
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// List returns sessions matching the filter.
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.HalqaID != "" {
		where = append(where, fmt.Sprintf("halqa_id = $%d", len(args)+1))
		args = append(args, filter.HalqaID)
	}
	if filter.DayType != "" {
		where = append(where, fmt.Sprintf("day_type = $%d", len(args)+1))
		args = append(args, filter.DayType)
	}
	if filter.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	clause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM sessions WHERE %s ORDER BY date DESC, created_at DESC LIMIT %d OFFSET %d`,
		sessionColumns, clause, size, offset)
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM sessions WHERE %s", clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}
	return sessions, total, nil
}

// ListByDate returns every session instance on a calendar date.
func (r *SessionRepository) ListByDate(ctx context.Context, date time.Time) ([]models.Session, error) {
	query := fmt.Sprintf(`SELECT %s FROM sessions WHERE date = $1 ORDER BY created_at`, sessionColumns)
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, date); err != nil {
		return nil, fmt.Errorf("list sessions by date: %w", err)
	}
	return sessions, nil
}

// Materialize creates a session for a (halqa, date) pair unless one already
// exists. Relies on the unique index over (halqa_id, date); a conflicting
// insert is a no-op and reports created = false.
func (r *SessionRepository) Materialize(ctx context.Context, session *models.Session) (bool, error) {
	now := time.Now().UTC()
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.Status == "" {
		session.Status = models.SessionNotStarted
	}
	session.CreatedAt = now
	session.UpdatedAt = now

	const query = `INSERT INTO sessions (id, halqa_id, date, day_type, status, friday_activity, friday_stage,
time_block, notes, started_at, ended_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (halqa_id, date) DO NOTHING
RETURNING id`
	var insertedID string
	err := r.db.QueryRowxContext(ctx, query,
		session.ID, session.HalqaID, session.Date, session.DayType, session.Status,
		session.FridayActivity, session.FridayStage, session.TimeBlock, session.Notes,
		session.StartedAt, session.EndedAt, session.CreatedAt, session.UpdatedAt,
	).Scan(&insertedID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("materialize session: %w", err)
	}
	return true, nil
}

// MaterializeRecreational creates a stage-keyed recreational Friday session
// unless one already exists for (date, stage). Same no-op contract as
// Materialize, backed by the partial unique index on recreational rows.
func (r *SessionRepository) MaterializeRecreational(ctx context.Context, session *models.Session) (bool, error) {
	now := time.Now().UTC()
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.Status == "" {
		session.Status = models.SessionNotStarted
	}
	session.CreatedAt = now
	session.UpdatedAt = now

	const query = `INSERT INTO sessions (id, halqa_id, date, day_type, status, friday_activity, friday_stage,
time_block, notes, started_at, ended_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (date, friday_stage) WHERE friday_activity = 'ترفيهي' DO NOTHING
RETURNING id`
	var insertedID string
	err := r.db.QueryRowxContext(ctx, query,
		session.ID, session.HalqaID, session.Date, session.DayType, session.Status,
		session.FridayActivity, session.FridayStage, session.TimeBlock, session.Notes,
		session.StartedAt, session.EndedAt, session.CreatedAt, session.UpdatedAt,
	).Scan(&insertedID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("materialize recreational session: %w", err)
	}
	return true, nil
}

// TransitionStatus applies a compare-and-set lifecycle transition. Returns
// (false, nil) when the stored status no longer matches expected.
func (r *SessionRepository) TransitionStatus(ctx context.Context, id string, expected, next models.SessionStatus, at time.Time) (bool, error) {
	var column string
	switch next {
	case models.SessionStarted:
		column = "started_at"
	case models.SessionEnded:
		column = "ended_at"
	default:
		return false, fmt.Errorf("transition session status: unsupported target %q", next)
	}
	query := fmt.Sprintf(`UPDATE sessions SET status = $1, %s = $2, updated_at = $3 WHERE id = $4 AND status = $5`, column)
	res, err := r.db.ExecContext(ctx, query, next, at, time.Now().UTC(), id, expected)
	if err != nil {
		return false, fmt.Errorf("transition session status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition session status: %w", err)
	}
	return affected == 1, nil
}

// AnyEndedOnDate reports whether any session on the date has already ended.
// Guards the Friday toggle.
func (r *SessionRepository) AnyEndedOnDate(ctx context.Context, date time.Time) (bool, error) {
	const query = `SELECT 1 FROM sessions WHERE date = $1 AND status = $2 LIMIT 1`
	var one int
	if err := r.db.GetContext(ctx, &one, query, date, models.SessionEnded); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check ended sessions: %w", err)
	}
	return true, nil
}

// CountOnDate counts session instances on a date.
func (r *SessionRepository) CountOnDate(ctx context.Context, date time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM sessions WHERE date = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, date); err != nil {
		return 0, fmt.Errorf("count sessions on date: %w", err)
	}
	return count, nil
}
