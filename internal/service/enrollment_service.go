package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/madarij-center/madarij-api/internal/models"
	"github.com/madarij-center/madarij-api/internal/repository"
	appErrors "github.com/madarij-center/madarij-api/pkg/errors"
)

type enrollmentStudentStore interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student, guardian *models.Guardian) error
	TransitionStatus(ctx context.Context, id string, expected models.ApplicationStatus, patch repository.StatusPatch) (bool, error)
	CountAcceptedInHalqa(ctx context.Context, halqaID string) (int, error)
	ListPendingApplications(ctx context.Context) ([]models.Student, error)
}

type enrollmentHalqaReader interface {
	FindByID(ctx context.Context, id string) (*models.Halqa, error)
}

type slotAllocator interface {
	Allocate(ctx context.Context, studentID, scheduledBy string) (*models.Interview, error)
	Release(ctx context.Context, interviewID string) error
}

type enrollmentInterviewStore interface {
	FindOpenByStudent(ctx context.Context, studentID string) (*models.Interview, error)
	SetResult(ctx context.Context, id string, result models.InterviewResult, notes *string, at time.Time) (bool, error)
}

type contactEmitter interface {
	ContactOwed(event models.ContactEvent)
}

// CreateApplicationRequest registers a new candidate and their guardian.
type CreateApplicationRequest struct {
	Name     string       `json:"name" validate:"required"`
	Age      *int         `json:"age,omitempty" validate:"omitempty,gte=4,lte=30"`
	Stage    models.Stage `json:"stage" validate:"required"`
	Notes    *string      `json:"notes,omitempty"`
	Guardian struct {
		Name            string  `json:"name" validate:"required"`
		Phone           string  `json:"phone" validate:"required"`
		AlternatePhone  *string `json:"alternate_phone,omitempty"`
		Relationship    string  `json:"relationship" validate:"required"`
		WhatsAppEnabled bool    `json:"whatsapp_enabled"`
	} `json:"guardian" validate:"required"`
}

// SubmitFormRequest merges supplementary intake data on form submission.
type SubmitFormRequest struct {
	Age   *int    `json:"age,omitempty" validate:"omitempty,gte=4,lte=30"`
	Notes *string `json:"notes,omitempty"`
}

// InterviewResultRequest records the interview outcome.
type InterviewResultRequest struct {
	Result  models.InterviewResult `json:"result" validate:"required"`
	Notes   *string                `json:"notes,omitempty"`
	HalqaID *string                `json:"halqa_id,omitempty"`
}

// EnrollmentService owns the student intake pipeline: the applicationStatus
// state machine, its transition guards, and the invariant that a student has
// a halqa if and only if they are accepted.
type EnrollmentService struct {
	students   enrollmentStudentStore
	halqat     enrollmentHalqaReader
	allocator  slotAllocator
	interviews enrollmentInterviewStore
	contacts   contactEmitter
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(students enrollmentStudentStore, halqat enrollmentHalqaReader, allocator slotAllocator, interviews enrollmentInterviewStore, contacts contactEmitter, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		students:   students,
		halqat:     halqat,
		allocator:  allocator,
		interviews: interviews,
		contacts:   contacts,
		validator:  validate,
		logger:     logger,
	}
}

// CreateApplication registers a new candidate in the New state together with
// their guardian.
func (s *EnrollmentService) CreateApplication(ctx context.Context, req CreateApplicationRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid application payload")
	}
	if !req.Stage.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown education stage")
	}

	student := &models.Student{
		Name:  req.Name,
		Age:   req.Age,
		Stage: req.Stage,
		Notes: req.Notes,
	}
	guardian := &models.Guardian{
		Name:            req.Guardian.Name,
		Phone:           req.Guardian.Phone,
		AlternatePhone:  req.Guardian.AlternatePhone,
		Relationship:    req.Guardian.Relationship,
		WhatsAppEnabled: req.Guardian.WhatsAppEnabled,
	}
	if err := s.students.Create(ctx, student, guardian); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create application")
	}
	s.logger.Info("application created", zap.String("student_id", student.ID), zap.String("stage", string(student.Stage)))
	return student, nil
}

// ListPending returns students still inside the intake pipeline.
func (s *EnrollmentService) ListPending(ctx context.Context) ([]models.Student, error) {
	students, err := s.students.ListPendingApplications(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
	}
	return students, nil
}

// MarkFormGiven advances New -> FormGiven and timestamps the hand-out.
func (s *EnrollmentService) MarkFormGiven(ctx context.Context, studentID string) (*models.Student, error) {
	student, err := s.load(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if student.ApplicationStatus != models.ApplicationNew {
		return nil, transitionError(student.ApplicationStatus, models.ApplicationFormGiven)
	}
	now := time.Now().UTC()
	return s.commit(ctx, studentID, models.ApplicationNew, repository.StatusPatch{
		Status:      models.ApplicationFormGiven,
		FormGivenAt: &now,
	})
}

// SubmitForm advances FormGiven -> FormSubmitted, merging intake data.
func (s *EnrollmentService) SubmitForm(ctx context.Context, studentID string, req SubmitFormRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid form payload")
	}
	student, err := s.load(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if student.ApplicationStatus != models.ApplicationFormGiven {
		return nil, transitionError(student.ApplicationStatus, models.ApplicationFormSubmitted)
	}
	now := time.Now().UTC()
	return s.commit(ctx, studentID, models.ApplicationFormGiven, repository.StatusPatch{
		Status:          models.ApplicationFormSubmitted,
		Age:             req.Age,
		Notes:           req.Notes,
		FormSubmittedAt: &now,
	})
}

// ScheduleInterview reserves the next open interview slot for a candidate in
// FormSubmitted and advances them to InterviewScheduled. On allocator
// exhaustion the student stays in FormSubmitted and the caller receives
// NoSlotAvailable.
func (s *EnrollmentService) ScheduleInterview(ctx context.Context, studentID, scheduledBy string) (*models.Student, *models.Interview, error) {
	student, err := s.load(ctx, studentID)
	if err != nil {
		return nil, nil, err
	}
	if student.ApplicationStatus != models.ApplicationFormSubmitted {
		return nil, nil, transitionError(student.ApplicationStatus, models.ApplicationInterviewScheduled)
	}
	if _, err := s.interviews.FindOpenByStudent(ctx, studentID); err == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrConflict, "student already has an open interview")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check open interviews")
	}

	interview, err := s.allocator.Allocate(ctx, studentID, scheduledBy)
	if err != nil {
		return nil, nil, err
	}

	updated, err := s.commit(ctx, studentID, models.ApplicationFormSubmitted, repository.StatusPatch{
		Status: models.ApplicationInterviewScheduled,
	})
	if err != nil {
		// A concurrent transition won; release the reservation so the slot
		// is not leaked.
		if relErr := s.allocator.Release(ctx, interview.ID); relErr != nil {
			s.logger.Warn("failed to release interview reservation",
				zap.String("interview_id", interview.ID), zap.Error(relErr))
		}
		return nil, nil, err
	}

	s.owe(ctx, updated, models.ContactReasonInterview,
		fmt.Sprintf("مقابلة يوم %s - %s", interview.DayOfWeek, interview.TimeSlot))
	return updated, interview, nil
}

// MarkInterviewCompleted advances InterviewScheduled -> InterviewCompleted
// once the candidate showed up, before the evaluation is decided.
func (s *EnrollmentService) MarkInterviewCompleted(ctx context.Context, studentID string) (*models.Student, error) {
	student, err := s.load(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if student.ApplicationStatus != models.ApplicationInterviewScheduled {
		return nil, transitionError(student.ApplicationStatus, models.ApplicationInterviewCompleted)
	}
	return s.commit(ctx, studentID, models.ApplicationInterviewScheduled, repository.StatusPatch{
		Status: models.ApplicationInterviewCompleted,
	})
}

// SetInterviewResult records the evaluation outcome. Accepting requires a
// halqa with spare capacity and atomically sets status, halqa and acceptance
// timestamps; rejecting is terminal; pending parks the candidate with no
// halqa. Legal from InterviewScheduled, InterviewCompleted, or (to resolve a
// parked candidate) Pending.
func (s *EnrollmentService) SetInterviewResult(ctx context.Context, studentID string, req InterviewResultRequest, decidedBy string) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid result payload")
	}
	if !req.Result.Valid() {
		return nil, appErrors.Clone(appErrors.ErrInvalidResult, "")
	}

	student, err := s.load(ctx, studentID)
	if err != nil {
		return nil, err
	}

	var target models.ApplicationStatus
	switch req.Result {
	case models.ResultAccepted:
		target = models.ApplicationAccepted
	case models.ResultRejected:
		target = models.ApplicationRejected
	case models.ResultPending:
		target = models.ApplicationPending
	}
	if !student.ApplicationStatus.CanTransition(target) {
		return nil, transitionError(student.ApplicationStatus, target)
	}

	patch := repository.StatusPatch{Status: target, InterviewNotes: req.Notes}
	switch target {
	case models.ApplicationAccepted:
		if req.HalqaID == nil || *req.HalqaID == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "acceptance requires a halqa")
		}
		halqa, err := s.halqat.FindByID(ctx, *req.HalqaID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "halqa not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load halqa")
		}
		if !halqa.Active {
			return nil, appErrors.Clone(appErrors.ErrValidation, "halqa is inactive")
		}
		count, err := s.students.CountAcceptedInHalqa(ctx, halqa.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check halqa capacity")
		}
		if count >= halqa.MaxStudents {
			return nil, appErrors.Clone(appErrors.ErrCapacityExceeded, "")
		}
		now := time.Now().UTC()
		patch.HalqaID = &halqa.ID
		patch.AcceptedAt = &now
		patch.AcceptedBy = &decidedBy
	default:
		patch.ClearHalqa = true
	}

	updated, err := s.commit(ctx, studentID, student.ApplicationStatus, patch)
	if err != nil {
		return nil, err
	}

	s.closeOpenInterview(ctx, studentID, req.Result, req.Notes)

	switch target {
	case models.ApplicationAccepted:
		s.owe(ctx, updated, models.ContactReasonAcceptance, "تم قبول الطالب")
	case models.ApplicationRejected:
		s.owe(ctx, updated, models.ContactReasonRejection, "نعتذر عن قبول الطالب")
	}
	return updated, nil
}

func (s *EnrollmentService) load(ctx context.Context, studentID string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// commit applies the CAS transition and re-reads the student. A failed CAS
// means another caller moved the student between our read and write.
func (s *EnrollmentService) commit(ctx context.Context, studentID string, expected models.ApplicationStatus, patch repository.StatusPatch) (*models.Student, error) {
	ok, err := s.students.TransitionStatus(ctx, studentID, expected, patch)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply transition")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrStaleState, "")
	}
	return s.load(ctx, studentID)
}

func (s *EnrollmentService) closeOpenInterview(ctx context.Context, studentID string, result models.InterviewResult, notes *string) {
	interview, err := s.interviews.FindOpenByStudent(ctx, studentID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("failed to look up open interview", zap.String("student_id", studentID), zap.Error(err))
		}
		return
	}
	if _, err := s.interviews.SetResult(ctx, interview.ID, result, notes, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to close interview", zap.String("interview_id", interview.ID), zap.Error(err))
	}
}

// owe emits a fire-and-forget contact event; delivery never affects the
// transition that triggered it.
func (s *EnrollmentService) owe(ctx context.Context, student *models.Student, reason models.ContactReason, detail string) {
	if s.contacts == nil {
		return
	}
	s.contacts.ContactOwed(models.ContactEvent{
		GuardianID: student.GuardianID,
		StudentID:  student.ID,
		Reason:     reason,
		Detail:     detail,
	})
}

func transitionError(from, to models.ApplicationStatus) error {
	return appErrors.Clone(appErrors.ErrInvalidTransition,
		fmt.Sprintf("cannot move application from %s to %s", from, to))
}
