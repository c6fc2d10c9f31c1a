package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/madarij-center/madarij-api/internal/models"
)

// GuardianRepository handles guardian lookups. Creation happens alongside
// the owning student in StudentRepository.Create.
type GuardianRepository struct {
	db *sqlx.DB
}

// NewGuardianRepository constructs the repository.
func NewGuardianRepository(db *sqlx.DB) *GuardianRepository {
	return &GuardianRepository{db: db}
}

// FindByID returns a guardian by its ID.
func (r *GuardianRepository) FindByID(ctx context.Context, id string) (*models.Guardian, error) {
	const query = `SELECT id, name, phone, alternate_phone, relationship, whatsapp_enabled, created_at, updated_at
FROM guardians WHERE id = $1`
	var guardian models.Guardian
	if err := r.db.GetContext(ctx, &guardian, query, id); err != nil {
		return nil, err
	}
	return &guardian, nil
}

// FindByStudent returns the guardian owned by a student.
func (r *GuardianRepository) FindByStudent(ctx context.Context, studentID string) (*models.Guardian, error) {
	const query = `SELECT g.id, g.name, g.phone, g.alternate_phone, g.relationship, g.whatsapp_enabled, g.created_at, g.updated_at
FROM guardians g
JOIN students s ON s.guardian_id = g.id
WHERE s.id = $1`
	var guardian models.Guardian
	if err := r.db.GetContext(ctx, &guardian, query, studentID); err != nil {
		return nil, fmt.Errorf("find guardian for student: %w", err)
	}
	return &guardian, nil
}
