package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/madarij-center/madarij-api/internal/models"
	appErrors "github.com/madarij-center/madarij-api/pkg/errors"
	"github.com/madarij-center/madarij-api/pkg/jobs"
)

type contactLogStore interface {
	Insert(ctx context.Context, log *models.ContactLog) error
	ListByStudent(ctx context.Context, studentID string) ([]models.ContactLog, error)
}

type guardianReader interface {
	FindByID(ctx context.Context, id string) (*models.Guardian, error)
}

// ContactService dispatches owed guardian contacts through a background
// queue. Emission is fire-and-forget: a full or stopped queue is logged and
// dropped, never propagated back into the workflow that owed the contact.
type ContactService struct {
	logs      contactLogStore
	guardians guardianReader
	queue     *jobs.Queue
	logger    *zap.Logger
}

// NewContactService constructs ContactService and its dispatch queue.
func NewContactService(logs contactLogStore, guardians guardianReader, workers, maxRetries int, logger *zap.Logger) *ContactService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ContactService{logs: logs, guardians: guardians, logger: logger}
	s.queue = jobs.NewQueue("guardian-contacts", s.dispatch, jobs.QueueConfig{
		Workers:    workers,
		MaxRetries: maxRetries,
		Logger:     logger,
	})
	return s
}

// Start launches the dispatch workers.
func (s *ContactService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the dispatch workers.
func (s *ContactService) Stop() {
	s.queue.Stop()
}

// ContactOwed enqueues a contact event for background dispatch.
func (s *ContactService) ContactOwed(event models.ContactEvent) {
	err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    string(event.Reason),
		Payload: event,
	})
	if err != nil {
		s.logger.Warn("dropped contact event",
			zap.String("student_id", event.StudentID),
			zap.String("reason", string(event.Reason)),
			zap.Error(err))
	}
}

// History returns the contact trace of one student.
func (s *ContactService) History(ctx context.Context, studentID string) ([]models.ContactLog, error) {
	logs, err := s.logs.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list contact history")
	}
	return logs, nil
}

func (s *ContactService) dispatch(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(models.ContactEvent)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}
	guardian, err := s.guardians.FindByID(ctx, event.GuardianID)
	if err != nil {
		return fmt.Errorf("load guardian %s: %w", event.GuardianID, err)
	}

	// Phone and WhatsApp channels are operated by staff; the dispatch here
	// records what is owed and to whom.
	var detail *string
	if event.Detail != "" {
		detail = &event.Detail
	}
	if err := s.logs.Insert(ctx, &models.ContactLog{
		GuardianID: guardian.ID,
		StudentID:  event.StudentID,
		Reason:     event.Reason,
		Detail:     detail,
	}); err != nil {
		return fmt.Errorf("record contact log: %w", err)
	}

	s.logger.Info("guardian contact recorded",
		zap.String("guardian_id", guardian.ID),
		zap.String("student_id", event.StudentID),
		zap.String("reason", string(event.Reason)),
		zap.Bool("whatsapp", guardian.WhatsAppEnabled))
	return nil
}
