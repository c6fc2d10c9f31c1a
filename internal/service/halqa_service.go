package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/madarij-center/madarij-api/internal/models"
	appErrors "github.com/madarij-center/madarij-api/pkg/errors"
)

type halqaStore interface {
	FindByID(ctx context.Context, id string) (*models.Halqa, error)
	ListActive(ctx context.Context) ([]models.Halqa, error)
	ListRoster(ctx context.Context) ([]models.HalqaRoster, error)
	Create(ctx context.Context, halqa *models.Halqa) error
}

// CreateHalqaRequest defines a new halqa and its weekly meeting days.
type CreateHalqaRequest struct {
	Name            string   `json:"name" validate:"required"`
	TeacherID       string   `json:"teacher_id" validate:"required"`
	SupervisorID    *string  `json:"supervisor_id,omitempty"`
	Days            []string `json:"days" validate:"required,min=1"`
	StartTime       string   `json:"start_time" validate:"required"`
	EndTime         string   `json:"end_time" validate:"required"`
	SessionDuration int      `json:"session_duration" validate:"gte=0"`
	MaxStudents     int      `json:"max_students" validate:"required,gte=1,lte=50"`
}

// HalqaService manages halqa definitions and their weekly day grids.
type HalqaService struct {
	halqat    halqaStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewHalqaService constructs HalqaService.
func NewHalqaService(halqat halqaStore, validate *validator.Validate, logger *zap.Logger) *HalqaService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HalqaService{halqat: halqat, validator: validate, logger: logger}
}

// Create registers a new active halqa. Day names use the Arabic weekday
// labels.
func (s *HalqaService) Create(ctx context.Context, req CreateHalqaRequest) (*models.Halqa, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid halqa payload")
	}
	for _, day := range req.Days {
		if _, ok := models.WeekdayFromName(day); !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown weekday name "+day)
		}
	}
	halqa := &models.Halqa{
		Name:            req.Name,
		TeacherID:       req.TeacherID,
		SupervisorID:    req.SupervisorID,
		Days:            req.Days,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		SessionDuration: req.SessionDuration,
		MaxStudents:     req.MaxStudents,
		Active:          true,
	}
	if err := s.halqat.Create(ctx, halqa); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create halqa")
	}
	s.logger.Info("halqa created", zap.String("halqa_id", halqa.ID), zap.String("name", halqa.Name))
	return halqa, nil
}

// Get returns one halqa.
func (s *HalqaService) Get(ctx context.Context, id string) (*models.Halqa, error) {
	halqa, err := s.halqat.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "halqa not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load halqa")
	}
	return halqa, nil
}

// List returns active halqat with their accepted student counts.
func (s *HalqaService) List(ctx context.Context) ([]models.HalqaRoster, error) {
	roster, err := s.halqat.ListRoster(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list halqat")
	}
	return roster, nil
}
