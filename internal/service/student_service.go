package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/madarij-center/madarij-api/internal/models"
	appErrors "github.com/madarij-center/madarij-api/pkg/errors"
)

type studentReadStore interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	ListAcceptedByHalqa(ctx context.Context, halqaID string) ([]models.Student, error)
}

type studentGuardianReader interface {
	FindByStudent(ctx context.Context, studentID string) (*models.Guardian, error)
}

// StudentProfile bundles a student with their guardian for detail views.
type StudentProfile struct {
	Student  models.Student   `json:"student"`
	Guardian *models.Guardian `json:"guardian,omitempty"`
}

// StudentService serves student read models for listings and detail pages.
type StudentService struct {
	students  studentReadStore
	guardians studentGuardianReader
	logger    *zap.Logger
}

// NewStudentService constructs StudentService.
func NewStudentService(students studentReadStore, guardians studentGuardianReader, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{students: students, guardians: guardians, logger: logger}
}

// Get returns a student with their guardian.
func (s *StudentService) Get(ctx context.Context, id string) (*StudentProfile, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	profile := &StudentProfile{Student: *student}
	guardian, err := s.guardians.FindByStudent(ctx, id)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load guardian")
		}
	} else {
		profile.Guardian = guardian
	}
	return profile, nil
}

// List returns students matching the filter plus the total count.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	students, total, err := s.students.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, total, nil
}

// Roster returns the accepted, active students of one halqa.
func (s *StudentService) Roster(ctx context.Context, halqaID string) ([]models.Student, error) {
	students, err := s.students.ListAcceptedByHalqa(ctx, halqaID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	return students, nil
}
