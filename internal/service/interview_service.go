package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/madarij-center/madarij-api/internal/models"
	appErrors "github.com/madarij-center/madarij-api/pkg/errors"
)

type interviewStore interface {
	Reserve(ctx context.Context, interview *models.Interview, capacity int) (bool, error)
	FindByID(ctx context.Context, id string) (*models.Interview, error)
	ListUpcoming(ctx context.Context, from time.Time) ([]models.InterviewDetail, error)
	SetResult(ctx context.Context, id string, result models.InterviewResult, notes *string, at time.Time) (bool, error)
	Cancel(ctx context.Context, id string) (bool, error)
}

// InterviewService allocates interview slots over a fixed weekly grid: the
// configured weekdays, the ordered slot labels within each day, and a
// per-(date, slot) capacity. Allocation scans forward from today and the
// reservation itself is the arbiter under concurrent schedulers.
type InterviewService struct {
	interviews   interviewStore
	days         []time.Weekday
	slots        []string
	capacity     int
	horizonWeeks int
	now          func() time.Time
	logger       *zap.Logger
}

// NewInterviewService constructs InterviewService from the slot grid
// configuration.
func NewInterviewService(interviews interviewStore, days []time.Weekday, slots []string, capacity, horizonWeeks int, logger *zap.Logger) *InterviewService {
	if capacity < 1 {
		capacity = 1
	}
	if horizonWeeks < 1 {
		horizonWeeks = 8
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	sorted := append([]time.Weekday(nil), days...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return &InterviewService{
		interviews:   interviews,
		days:         sorted,
		slots:        append([]string(nil), slots...),
		capacity:     capacity,
		horizonWeeks: horizonWeeks,
		now:          time.Now,
		logger:       logger,
	}
}

// Allocate reserves the earliest open (date, slot) for the student. The scan
// starts with the current date, takes eligible days in calendar order and
// slots in configured order, and returns NoSlotAvailable once the horizon is
// exhausted.
func (s *InterviewService) Allocate(ctx context.Context, studentID, scheduledBy string) (*models.Interview, error) {
	today := s.now().UTC().Truncate(24 * time.Hour)
	horizon := s.horizonWeeks * 7

	for offset := 0; offset <= horizon; offset++ {
		date := today.AddDate(0, 0, offset)
		if !s.eligibleDay(date.Weekday()) {
			continue
		}
		for _, slot := range s.slots {
			interview := &models.Interview{
				StudentID:     studentID,
				ScheduledDate: date,
				DayOfWeek:     models.WeekdayName(date.Weekday()),
				TimeSlot:      slot,
				Status:        models.InterviewScheduled,
				ScheduledBy:   scheduledBy,
			}
			won, err := s.interviews.Reserve(ctx, interview, s.capacity)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reserve interview slot")
			}
			if won {
				s.logger.Info("interview slot reserved",
					zap.String("student_id", studentID),
					zap.Time("date", date),
					zap.String("slot", slot))
				return interview, nil
			}
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNoSlotAvailable, "")
}

// Release cancels a reservation made by Allocate. Used to back out when the
// student transition that was supposed to consume it fails.
func (s *InterviewService) Release(ctx context.Context, interviewID string) error {
	ok, err := s.interviews.Cancel(ctx, interviewID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel interview")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrConflict, "interview is not open")
	}
	return nil
}

// ListUpcoming returns open interviews from today onward with candidate
// metadata, ordered by date then slot.
func (s *InterviewService) ListUpcoming(ctx context.Context) ([]models.InterviewDetail, error) {
	today := s.now().UTC().Truncate(24 * time.Hour)
	interviews, err := s.interviews.ListUpcoming(ctx, today)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list interviews")
	}
	return interviews, nil
}

// Cancel closes an open interview without an evaluation.
func (s *InterviewService) Cancel(ctx context.Context, interviewID string) error {
	if _, err := s.interviews.FindByID(ctx, interviewID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "interview not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load interview")
	}
	return s.Release(ctx, interviewID)
}

func (s *InterviewService) eligibleDay(day time.Weekday) bool {
	for _, d := range s.days {
		if d == day {
			return true
		}
	}
	return false
}
