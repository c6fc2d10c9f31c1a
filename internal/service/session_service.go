package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/madarij-center/madarij-api/internal/models"
	appErrors "github.com/madarij-center/madarij-api/pkg/errors"
)

type sessionStore interface {
	FindByID(ctx context.Context, id string) (*models.Session, error)
	List(ctx context.Context, filter models.SessionFilter) ([]models.Session, int, error)
	ListByDate(ctx context.Context, date time.Time) ([]models.Session, error)
	Materialize(ctx context.Context, session *models.Session) (bool, error)
	TransitionStatus(ctx context.Context, id string, expected, next models.SessionStatus, at time.Time) (bool, error)
}

type sessionHalqaStore interface {
	ListActive(ctx context.Context) ([]models.Halqa, error)
}

type attendanceStatsReader interface {
	StatsBySession(ctx context.Context, sessionID string) (models.AttendanceStats, error)
}

// SessionService manages the lifecycle of dated session instances. Statuses
// only move forward and every move is CAS-guarded, so replays and concurrent
// operators cannot regress a session.
type SessionService struct {
	sessions sessionStore
	halqat   sessionHalqaStore
	stats    attendanceStatsReader
	logger   *zap.Logger
}

// NewSessionService constructs SessionService.
func NewSessionService(sessions sessionStore, halqat sessionHalqaStore, stats attendanceStatsReader, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{sessions: sessions, halqat: halqat, stats: stats, logger: logger}
}

// MaterializeDate creates the day's sessions: one NotStarted session for
// every active halqa that meets on that weekday. Existing (halqa, date) rows
// are left alone, so the call is safe to repeat.
func (s *SessionService) MaterializeDate(ctx context.Context, date time.Time) (created int, err error) {
	date = dateOnly(date)
	if date.Weekday() == time.Friday {
		// Friday instances belong to the Friday program generator.
		return 0, nil
	}
	halqat, err := s.halqat.ListActive(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list halqat")
	}
	for i := range halqat {
		h := &halqat[i]
		if !h.MeetsOn(date.Weekday()) {
			continue
		}
		session := &models.Session{
			HalqaID: &h.ID,
			Date:    date,
			DayType: models.DayTypeNormal,
			Status:  models.SessionNotStarted,
		}
		ok, err := s.sessions.Materialize(ctx, session)
		if err != nil {
			return created, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status,
				fmt.Sprintf("failed to materialize session for halqa %s", h.ID))
		}
		if ok {
			created++
		}
	}
	s.logger.Info("sessions materialized", zap.Time("date", date), zap.Int("created", created))
	return created, nil
}

// Start moves a session NotStarted -> Started and stamps startedAt.
func (s *SessionService) Start(ctx context.Context, sessionID string) (*models.Session, error) {
	return s.transition(ctx, sessionID, models.SessionNotStarted, models.SessionStarted)
}

// End moves a session Started -> Ended and stamps endedAt.
func (s *SessionService) End(ctx context.Context, sessionID string) (*models.Session, error) {
	return s.transition(ctx, sessionID, models.SessionStarted, models.SessionEnded)
}

func (s *SessionService) transition(ctx context.Context, sessionID string, expected, next models.SessionStatus) (*models.Session, error) {
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != expected {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot move session from %s to %s", session.Status, next))
	}
	ok, err := s.sessions.TransitionStatus(ctx, sessionID, expected, next, time.Now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update session status")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrStaleState, "")
	}
	return s.loadSession(ctx, sessionID)
}

// Get returns a session with its recomputed attendance tally.
func (s *SessionService) Get(ctx context.Context, sessionID string) (*models.SessionWithStats, error) {
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	stats, err := s.stats.StatsBySession(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute attendance stats")
	}
	return &models.SessionWithStats{Session: *session, Stats: stats}, nil
}

// List returns sessions matching the filter plus the total count.
func (s *SessionService) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, int, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	sessions, total, err := s.sessions.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	return sessions, total, nil
}

// ListByDate returns all sessions of one calendar day.
func (s *SessionService) ListByDate(ctx context.Context, date time.Time) ([]models.Session, error) {
	sessions, err := s.sessions.ListByDate(ctx, dateOnly(date))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	return sessions, nil
}

func (s *SessionService) loadSession(ctx context.Context, sessionID string) (*models.Session, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return session, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
