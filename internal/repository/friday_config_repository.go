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

// FridayConfigRepository handles the per-week Friday program configuration.
type FridayConfigRepository struct {
	db *sqlx.DB
}

// NewFridayConfigRepository constructs the repository.
func NewFridayConfigRepository(db *sqlx.DB) *FridayConfigRepository {
	return &FridayConfigRepository{db: db}
}

const fridayConfigColumns = `id, friday_date, recreational_day, toggled_by, toggled_at, generated_at, created_at, updated_at`

// GetOrCreate returns the config row for a Friday date, creating a default
// (educational) one when missing. The unique index on friday_date makes the
// create race-safe: a concurrent insert falls through to the read.
func (r *FridayConfigRepository) GetOrCreate(ctx context.Context, fridayDate time.Time) (*models.FridayConfig, error) {
	now := time.Now().UTC()
	insert := fmt.Sprintf(`INSERT INTO friday_configs (id, friday_date, recreational_day, created_at, updated_at)
VALUES ($1, $2, FALSE, $3, $4)
ON CONFLICT (friday_date) DO NOTHING
RETURNING %s`, fridayConfigColumns)
	var config models.FridayConfig
	err := r.db.GetContext(ctx, &config, insert, uuid.NewString(), fridayDate, now, now)
	if err == nil {
		return &config, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("create friday config: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM friday_configs WHERE friday_date = $1`, fridayConfigColumns)
	if err := r.db.GetContext(ctx, &config, query, fridayDate); err != nil {
		return nil, fmt.Errorf("get friday config: %w", err)
	}
	return &config, nil
}

// SetRecreational flips the toggle with a compare-and-set on the previous
// value. Returns (false, nil) when the stored value already changed.
func (r *FridayConfigRepository) SetRecreational(ctx context.Context, id string, expected, next bool, by string, at time.Time) (bool, error) {
	const query = `UPDATE friday_configs
SET recreational_day = $1, toggled_by = $2, toggled_at = $3, updated_at = $4
WHERE id = $5 AND recreational_day = $6`
	res, err := r.db.ExecContext(ctx, query, next, by, at, time.Now().UTC(), id, expected)
	if err != nil {
		return false, fmt.Errorf("set recreational day: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set recreational day: %w", err)
	}
	return affected == 1, nil
}

// MarkGenerated records the last generation run timestamp.
func (r *FridayConfigRepository) MarkGenerated(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE friday_configs SET generated_at = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, at, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("mark friday generated: %w", err)
	}
	return nil
}
