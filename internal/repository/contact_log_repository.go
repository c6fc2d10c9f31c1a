package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/madarij-center/madarij-api/internal/models"
)

// ContactLogRepository persists the trace of dispatched guardian contacts.
type ContactLogRepository struct {
	db *sqlx.DB
}

// NewContactLogRepository constructs the repository.
func NewContactLogRepository(db *sqlx.DB) *ContactLogRepository {
	return &ContactLogRepository{db: db}
}

// Insert stores a dispatched contact record.
func (r *ContactLogRepository) Insert(ctx context.Context, log *models.ContactLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO contact_logs (id, guardian_id, student_id, reason, detail, created_at)
VALUES (:id, :guardian_id, :student_id, :reason, :detail, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("insert contact log: %w", err)
	}
	return nil
}

// ListByStudent returns the contact history for a student.
func (r *ContactLogRepository) ListByStudent(ctx context.Context, studentID string) ([]models.ContactLog, error) {
	const query = `SELECT id, guardian_id, student_id, reason, detail, created_at
FROM contact_logs WHERE student_id = $1 ORDER BY created_at DESC`
	var logs []models.ContactLog
	if err := r.db.SelectContext(ctx, &logs, query, studentID); err != nil {
		return nil, fmt.Errorf("list contact logs: %w", err)
	}
	return logs, nil
}
