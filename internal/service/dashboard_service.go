package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/madarij-center/madarij-api/internal/models"
	appErrors "github.com/madarij-center/madarij-api/pkg/errors"
)

const dashboardCacheKey = "dashboard:snapshot"

type dashboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string)
}

type dashboardStudentReader interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	ListPendingApplications(ctx context.Context) ([]models.Student, error)
}

type dashboardHalqaReader interface {
	ListRoster(ctx context.Context) ([]models.HalqaRoster, error)
}

type dashboardSessionReader interface {
	ListByDate(ctx context.Context, date time.Time) ([]models.Session, error)
}

type dashboardInterviewReader interface {
	ListUpcoming(ctx context.Context, from time.Time) ([]models.InterviewDetail, error)
}

// DashboardSnapshot is the aggregated overview served to the landing page.
type DashboardSnapshot struct {
	GeneratedAt         time.Time                        `json:"generated_at"`
	AcceptedStudents    int                              `json:"accepted_students"`
	PendingApplications int                              `json:"pending_applications"`
	ApplicationsByState map[models.ApplicationStatus]int `json:"applications_by_state"`
	Halqat              []models.HalqaRoster             `json:"halqat"`
	TodaySessions       map[models.SessionStatus]int     `json:"today_sessions"`
	UpcomingInterviews  int                              `json:"upcoming_interviews"`
}

// DashboardService aggregates the center overview and caches it in redis for
// a short TTL. A cold or unreachable cache falls back to a live build.
type DashboardService struct {
	cache      dashboardCache
	students   dashboardStudentReader
	halqat     dashboardHalqaReader
	sessions   dashboardSessionReader
	interviews dashboardInterviewReader
	ttl        time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

// NewDashboardService constructs DashboardService.
func NewDashboardService(cache dashboardCache, students dashboardStudentReader, halqat dashboardHalqaReader, sessions dashboardSessionReader, interviews dashboardInterviewReader, ttl time.Duration, logger *zap.Logger) *DashboardService {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		cache:      cache,
		students:   students,
		halqat:     halqat,
		sessions:   sessions,
		interviews: interviews,
		ttl:        ttl,
		now:        time.Now,
		logger:     logger,
	}
}

// Snapshot returns the cached overview, rebuilding it on a miss.
func (s *DashboardService) Snapshot(ctx context.Context) (*DashboardSnapshot, error) {
	var cached DashboardSnapshot
	if err := s.cache.Get(ctx, dashboardCacheKey, &cached); err == nil {
		return &cached, nil
	} else if !appErrors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("dashboard cache read failed", zap.Error(err))
	}

	snapshot, err := s.build(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, dashboardCacheKey, snapshot, s.ttl); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.Error(err))
	}
	return snapshot, nil
}

// Invalidate drops the cached snapshot so the next read rebuilds it.
func (s *DashboardService) Invalidate(ctx context.Context) {
	s.cache.Delete(ctx, dashboardCacheKey)
}

func (s *DashboardService) build(ctx context.Context) (*DashboardSnapshot, error) {
	today := dateOnly(s.now().UTC())
	snapshot := &DashboardSnapshot{
		GeneratedAt:         s.now().UTC(),
		ApplicationsByState: make(map[models.ApplicationStatus]int),
		TodaySessions:       make(map[models.SessionStatus]int),
	}

	_, accepted, err := s.students.List(ctx, models.StudentFilter{
		ApplicationStatus: models.ApplicationAccepted,
		ActiveOnly:        true,
		Page:              1,
		PageSize:          1,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}
	snapshot.AcceptedStudents = accepted

	pending, err := s.students.ListPendingApplications(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
	}
	snapshot.PendingApplications = len(pending)
	for _, student := range pending {
		snapshot.ApplicationsByState[student.ApplicationStatus]++
	}

	halqat, err := s.halqat.ListRoster(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list halqat")
	}
	snapshot.Halqat = halqat

	sessions, err := s.sessions.ListByDate(ctx, today)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list today's sessions")
	}
	for _, session := range sessions {
		snapshot.TodaySessions[session.Status]++
	}

	interviews, err := s.interviews.ListUpcoming(ctx, today)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list interviews")
	}
	snapshot.UpcomingInterviews = len(interviews)

	return snapshot, nil
}
