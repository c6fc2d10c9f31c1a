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
	appErrors "github.com/madarij-center/madarij-api/pkg/errors"
)

type attendanceStore interface {
	Upsert(ctx context.Context, record *models.Attendance) (*models.Attendance, error)
	ListBySession(ctx context.Context, sessionID string) ([]models.AttendanceRow, error)
	StatsBySession(ctx context.Context, sessionID string) (models.AttendanceStats, error)
}

type attendanceSessionReader interface {
	FindByID(ctx context.Context, id string) (*models.Session, error)
}

type attendanceRosterReader interface {
	ListAcceptedByHalqa(ctx context.Context, halqaID string) ([]models.Student, error)
	ListAcceptedByStage(ctx context.Context, stage models.Stage) ([]models.Student, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// AttendanceRecord is one entry of a batch submission.
type AttendanceRecord struct {
	StudentID     string                  `json:"student_id" validate:"required"`
	Status        models.AttendanceStatus `json:"status" validate:"required"`
	AbsenceReason *string                 `json:"absence_reason,omitempty"`
}

// RecordAttendanceRequest is the batch attendance payload for one session.
type RecordAttendanceRequest struct {
	Records []AttendanceRecord `json:"records" validate:"required,min=1,dive"`
}

// AttendanceBatchOutcome bundles the per-record results with the recomputed
// session stats.
type AttendanceBatchOutcome struct {
	Results []models.AttendanceRecordResult `json:"results"`
	Stats   models.AttendanceStats          `json:"stats"`
}

// AttendanceService records per-student presence on sessions. Batches are
// applied record by record, so one bad entry never blocks the rest, and the
// session tally is recomputed from stored rows after every batch.
type AttendanceService struct {
	attendance attendanceStore
	sessions   attendanceSessionReader
	students   attendanceRosterReader
	contacts   contactEmitter
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewAttendanceService constructs AttendanceService.
func NewAttendanceService(attendance attendanceStore, sessions attendanceSessionReader, students attendanceRosterReader, contacts contactEmitter, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{
		attendance: attendance,
		sessions:   sessions,
		students:   students,
		contacts:   contacts,
		validator:  validate,
		logger:     logger,
	}
}

// RecordAttendance upserts a batch of records for one session. Each record
// succeeds or fails on its own; the response carries one result per input
// record in order, followed by the recomputed stats.
func (s *AttendanceService) RecordAttendance(ctx context.Context, sessionID string, req RecordAttendanceRequest, recordedBy string) (*AttendanceBatchOutcome, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if session.Status == models.SessionNotStarted {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "session has not started")
	}

	results := make([]models.AttendanceRecordResult, 0, len(req.Records))
	for _, record := range req.Records {
		results = append(results, s.apply(ctx, sessionID, record, recordedBy))
	}

	stats, err := s.attendance.StatsBySession(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute attendance stats")
	}
	return &AttendanceBatchOutcome{Results: results, Stats: stats}, nil
}

// MarkAllPresent records every rostered student of the session as present,
// through the same per-record upsert path as a manual batch.
func (s *AttendanceService) MarkAllPresent(ctx context.Context, sessionID, recordedBy string) (*AttendanceBatchOutcome, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}

	roster, err := s.rosterFor(ctx, session)
	if err != nil {
		return nil, err
	}
	records := make([]AttendanceRecord, 0, len(roster))
	for _, student := range roster {
		records = append(records, AttendanceRecord{StudentID: student.ID, Status: models.AttendancePresent})
	}
	if len(records) == 0 {
		return &AttendanceBatchOutcome{Results: nil, Stats: models.AttendanceStats{}}, nil
	}
	return s.RecordAttendance(ctx, sessionID, RecordAttendanceRequest{Records: records}, recordedBy)
}

// ListBySession returns the stored records of one session with student
// metadata.
func (s *AttendanceService) ListBySession(ctx context.Context, sessionID string) ([]models.AttendanceRow, error) {
	rows, err := s.attendance.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	return rows, nil
}

func (s *AttendanceService) apply(ctx context.Context, sessionID string, record AttendanceRecord, recordedBy string) models.AttendanceRecordResult {
	result := models.AttendanceRecordResult{StudentID: record.StudentID, Status: record.Status}
	if !record.Status.Valid() {
		result.Error = fmt.Sprintf("unknown attendance status %q", record.Status)
		return result
	}
	stored, err := s.attendance.Upsert(ctx, &models.Attendance{
		StudentID:     record.StudentID,
		SessionID:     sessionID,
		Status:        record.Status,
		AbsenceReason: record.AbsenceReason,
		RecordedBy:    recordedBy,
		RecordedAt:    time.Now().UTC(),
	})
	if err != nil {
		s.logger.Warn("attendance upsert failed",
			zap.String("session_id", sessionID),
			zap.String("student_id", record.StudentID),
			zap.Error(err))
		result.Error = "failed to store record"
		return result
	}
	result.OK = true
	if stored.Status == models.AttendanceAbsent {
		s.oweAbsence(ctx, record.StudentID)
	}
	return result
}

func (s *AttendanceService) oweAbsence(ctx context.Context, studentID string) {
	if s.contacts == nil {
		return
	}
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		s.logger.Warn("failed to load student for absence contact", zap.String("student_id", studentID), zap.Error(err))
		return
	}
	s.contacts.ContactOwed(models.ContactEvent{
		GuardianID: student.GuardianID,
		StudentID:  student.ID,
		Reason:     models.ContactReasonAttendance,
		Detail:     "تغيب الطالب عن الجلسة",
	})
}

// rosterFor resolves who is expected at a session: the halqa's accepted
// students for halqa-keyed sessions, the stage's accepted students for
// recreational Friday sessions.
func (s *AttendanceService) rosterFor(ctx context.Context, session *models.Session) ([]models.Student, error) {
	switch {
	case session.HalqaID != nil:
		roster, err := s.students.ListAcceptedByHalqa(ctx, *session.HalqaID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load halqa roster")
		}
		return roster, nil
	case session.FridayStage != nil:
		roster, err := s.students.ListAcceptedByStage(ctx, *session.FridayStage)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load stage roster")
		}
		return roster, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "session has no roster")
	}
}
