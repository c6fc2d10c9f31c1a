package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/madarij-center/madarij-api/internal/models"
)

// StudentRepository handles persistence of students and guardians.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `id, name, age, stage, halqa_id, guardian_id, status, application_status,
notes, interview_notes, active, enrolled_at, form_given_at, form_submitted_at, accepted_at, accepted_by,
created_at, updated_at`

// FindByID returns a student by its ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE id = $1`, studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// List returns students matching the filter with a total count.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.Stage != "" {
		where = append(where, fmt.Sprintf("stage = $%d", len(args)+1))
		args = append(args, filter.Stage)
	}
	if filter.HalqaID != "" {
		where = append(where, fmt.Sprintf("halqa_id = $%d", len(args)+1))
		args = append(args, filter.HalqaID)
	}
	if filter.ApplicationStatus != "" {
		where = append(where, fmt.Sprintf("application_status = $%d", len(args)+1))
		args = append(args, filter.ApplicationStatus)
	}
	if filter.ActiveOnly {
		where = append(where, "active = TRUE")
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

	query := fmt.Sprintf(`SELECT %s FROM students WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		studentColumns, clause, size, offset)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM students WHERE %s", clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// ListPendingApplications returns students still inside the intake pipeline.
func (r *StudentRepository) ListPendingApplications(ctx context.Context) ([]models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students
WHERE application_status NOT IN ($1, $2)
ORDER BY created_at DESC`, studentColumns)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, models.ApplicationAccepted, models.ApplicationRejected); err != nil {
		return nil, fmt.Errorf("list pending applications: %w", err)
	}
	return students, nil
}

// ListAcceptedActiveStages returns the distinct stages present among
// accepted, active students. Feeds the recreational Friday generator.
func (r *StudentRepository) ListAcceptedActiveStages(ctx context.Context) ([]models.Stage, error) {
	const query = `SELECT DISTINCT stage FROM students
WHERE application_status = $1 AND active = TRUE`
	var stages []models.Stage
	if err := r.db.SelectContext(ctx, &stages, query, models.ApplicationAccepted); err != nil {
		return nil, fmt.Errorf("list accepted stages: %w", err)
	}
	return stages, nil
}

// ListAcceptedByStage returns accepted, active students of one stage.
func (r *StudentRepository) ListAcceptedByStage(ctx context.Context, stage models.Stage) ([]models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students
WHERE stage = $1 AND application_status = $2 AND active = TRUE
ORDER BY name`, studentColumns)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, stage, models.ApplicationAccepted); err != nil {
		return nil, fmt.Errorf("list stage students: %w", err)
	}
	return students, nil
}

// ListAcceptedByHalqa returns accepted students assigned to a halqa.
func (r *StudentRepository) ListAcceptedByHalqa(ctx context.Context, halqaID string) ([]models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students
WHERE halqa_id = $1 AND application_status = $2 AND active = TRUE
ORDER BY name`, studentColumns)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, halqaID, models.ApplicationAccepted); err != nil {
		return nil, fmt.Errorf("list halqa students: %w", err)
	}
	return students, nil
}

// CountAcceptedInHalqa counts accepted students referencing a halqa.
func (r *StudentRepository) CountAcceptedInHalqa(ctx context.Context, halqaID string) (int, error) {
	const query = `SELECT COUNT(*) FROM students WHERE halqa_id = $1 AND application_status = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, halqaID, models.ApplicationAccepted); err != nil {
		return 0, fmt.Errorf("count halqa students: %w", err)
	}
	return count, nil
}

// Create persists a new student application together with its guardian in a
// single transaction. The application starts in the New state.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student, guardian *models.Guardian) error {
	now := time.Now().UTC()
	if guardian.ID == "" {
		guardian.ID = uuid.NewString()
	}
	guardian.CreatedAt = now
	guardian.UpdatedAt = now
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	student.GuardianID = guardian.ID
	student.ApplicationStatus = models.ApplicationNew
	student.Status = models.StudentStatusRegular
	student.Active = true
	student.EnrolledAt = now
	student.CreatedAt = now
	student.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create student: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const guardianQuery = `INSERT INTO guardians (id, name, phone, alternate_phone, relationship, whatsapp_enabled, created_at, updated_at)
VALUES (:id, :name, :phone, :alternate_phone, :relationship, :whatsapp_enabled, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, guardianQuery, guardian); err != nil {
		return fmt.Errorf("create guardian: %w", err)
	}

	const studentQuery = `INSERT INTO students (id, name, age, stage, halqa_id, guardian_id, status, application_status,
notes, interview_notes, active, enrolled_at, form_given_at, form_submitted_at, accepted_at, accepted_by, created_at, updated_at)
VALUES (:id, :name, :age, :stage, :halqa_id, :guardian_id, :status, :application_status,
:notes, :interview_notes, :active, :enrolled_at, :form_given_at, :form_submitted_at, :accepted_at, :accepted_by, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, studentQuery, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create student: %w", err)
	}
	return nil
}

// StatusPatch carries the fields a pipeline transition may set alongside the
// new application status.
type StatusPatch struct {
	Status          models.ApplicationStatus
	HalqaID         *string
	ClearHalqa      bool
	Age             *int
	Notes           *string
	InterviewNotes  *string
	FormGivenAt     *time.Time
	FormSubmittedAt *time.Time
	AcceptedAt      *time.Time
	AcceptedBy      *string
}

// TransitionStatus applies a compare-and-set transition: the update only
// lands when the stored application_status still equals expected. Returns
// (false, nil) when the precondition failed, letting the caller distinguish
// a stale read from a missing row.
func (r *StudentRepository) TransitionStatus(ctx context.Context, id string, expected models.ApplicationStatus, patch StatusPatch) (bool, error) {
	set := []string{"application_status = $1", "updated_at = $2"}
	args := []interface{}{patch.Status, time.Now().UTC()}

	add := func(column string, value interface{}) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.HalqaID != nil {
		add("halqa_id", *patch.HalqaID)
	} else if patch.ClearHalqa {
		set = append(set, "halqa_id = NULL")
	}
	if patch.Age != nil {
		add("age", *patch.Age)
	}
	if patch.Notes != nil {
		add("notes", *patch.Notes)
	}
	if patch.InterviewNotes != nil {
		add("interview_notes", *patch.InterviewNotes)
	}
	if patch.FormGivenAt != nil {
		add("form_given_at", *patch.FormGivenAt)
	}
	if patch.FormSubmittedAt != nil {
		add("form_submitted_at", *patch.FormSubmittedAt)
	}
	if patch.AcceptedAt != nil {
		add("accepted_at", *patch.AcceptedAt)
	}
	if patch.AcceptedBy != nil {
		add("accepted_by", *patch.AcceptedBy)
	}

	args = append(args, id)
	idPos := len(args)
	args = append(args, expected)
	expectedPos := len(args)

	query := fmt.Sprintf(`UPDATE students SET %s WHERE id = $%d AND application_status = $%d`,
		strings.Join(set, ", "), idPos, expectedPos)
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("transition student status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition student status: %w", err)
	}
	return affected == 1, nil
}
