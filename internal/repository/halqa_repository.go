package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/madarij-center/madarij-api/internal/models"
)

// HalqaRepository handles persistence of halqat.
type HalqaRepository struct {
	db *sqlx.DB
}

// NewHalqaRepository constructs the repository.
func NewHalqaRepository(db *sqlx.DB) *HalqaRepository {
	return &HalqaRepository{db: db}
}

const halqaColumns = `id, name, teacher_id, supervisor_id, days, start_time, end_time,
session_duration, max_students, active, created_at, updated_at`

// FindByID returns a halqa by its ID.
func (r *HalqaRepository) FindByID(ctx context.Context, id string) (*models.Halqa, error) {
	query := fmt.Sprintf(`SELECT %s FROM halqat WHERE id = $1`, halqaColumns)
	var halqa models.Halqa
	if err := r.db.GetContext(ctx, &halqa, query, id); err != nil {
		return nil, err
	}
	return &halqa, nil
}

// ListActive returns all active halqat.
func (r *HalqaRepository) ListActive(ctx context.Context) ([]models.Halqa, error) {
	query := fmt.Sprintf(`SELECT %s FROM halqat WHERE active = TRUE ORDER BY name`, halqaColumns)
	var halqat []models.Halqa
	if err := r.db.SelectContext(ctx, &halqat, query); err != nil {
		return nil, fmt.Errorf("list active halqat: %w", err)
	}
	return halqat, nil
}

// ListRoster returns halqat with their accepted student counts.
func (r *HalqaRepository) ListRoster(ctx context.Context) ([]models.HalqaRoster, error) {
	const query = `SELECT h.id, h.name, h.teacher_id, h.supervisor_id, h.days, h.start_time, h.end_time,
h.session_duration, h.max_students, h.active, h.created_at, h.updated_at,
COUNT(s.id) FILTER (WHERE s.application_status = $1) AS student_count
FROM halqat h
LEFT JOIN students s ON s.halqa_id = h.id
GROUP BY h.id
ORDER BY h.name`
	var roster []models.HalqaRoster
	if err := r.db.SelectContext(ctx, &roster, query, models.ApplicationAccepted); err != nil {
		return nil, fmt.Errorf("list halqa roster: %w", err)
	}
	return roster, nil
}

// Create persists a new halqa.
func (r *HalqaRepository) Create(ctx context.Context, halqa *models.Halqa) error {
	now := time.Now().UTC()
	if halqa.ID == "" {
		halqa.ID = uuid.NewString()
	}
	halqa.CreatedAt = now
	halqa.UpdatedAt = now
	const query = `INSERT INTO halqat (id, name, teacher_id, supervisor_id, days, start_time, end_time,
session_duration, max_students, active, created_at, updated_at)
VALUES (:id, :name, :teacher_id, :supervisor_id, :days, :start_time, :end_time,
:session_duration, :max_students, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, halqa); err != nil {
		return fmt.Errorf("create halqa: %w", err)
	}
	return nil
}
