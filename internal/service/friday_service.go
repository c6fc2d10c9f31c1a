package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/madarij-center/madarij-api/internal/models"
	appErrors "github.com/madarij-center/madarij-api/pkg/errors"
)

type fridayConfigStore interface {
	GetOrCreate(ctx context.Context, fridayDate time.Time) (*models.FridayConfig, error)
	SetRecreational(ctx context.Context, id string, expected, next bool, by string, at time.Time) (bool, error)
	MarkGenerated(ctx context.Context, id string, at time.Time) error
}

type fridaySessionStore interface {
	Materialize(ctx context.Context, session *models.Session) (bool, error)
	MaterializeRecreational(ctx context.Context, session *models.Session) (bool, error)
	ListByDate(ctx context.Context, date time.Time) ([]models.Session, error)
	AnyEndedOnDate(ctx context.Context, date time.Time) (bool, error)
	CountOnDate(ctx context.Context, date time.Time) (int, error)
}

type fridayHalqaReader interface {
	ListActive(ctx context.Context) ([]models.Halqa, error)
}

type fridayStudentReader interface {
	ListAcceptedActiveStages(ctx context.Context) ([]models.Stage, error)
}

// FridayService runs the weekly Friday program. Each Friday has a config row
// with a recreational toggle; the toggle freezes once any of that Friday's
// sessions has ended. Generation is idempotent in both modes: re-running
// converges on the same session set and never touches sessions that moved
// past NotStarted.
type FridayService struct {
	configs    fridayConfigStore
	sessions   fridaySessionStore
	halqat     fridayHalqaReader
	students   fridayStudentReader
	timeBlocks []string
	now        func() time.Time
	logger     *zap.Logger
}

// NewFridayService constructs FridayService. timeBlocks are the ordered day
// blocks recreational sessions are spread over, one per stage.
func NewFridayService(configs fridayConfigStore, sessions fridaySessionStore, halqat fridayHalqaReader, students fridayStudentReader, timeBlocks []string, logger *zap.Logger) *FridayService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FridayService{
		configs:    configs,
		sessions:   sessions,
		halqat:     halqat,
		students:   students,
		timeBlocks: append([]string(nil), timeBlocks...),
		now:        time.Now,
		logger:     logger,
	}
}

// NextFriday returns the upcoming Friday date (today when today is Friday).
func (s *FridayService) NextFriday() time.Time {
	today := dateOnly(s.now().UTC())
	offset := (int(time.Friday) - int(today.Weekday()) + 7) % 7
	return today.AddDate(0, 0, offset)
}

// GetConfig returns the config of the given Friday together with the session
// count and whether the toggle is still open.
func (s *FridayService) GetConfig(ctx context.Context, fridayDate time.Time) (*models.FridayConfigView, error) {
	fridayDate = dateOnly(fridayDate)
	if fridayDate.Weekday() != time.Friday {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date is not a friday")
	}
	config, err := s.configs.GetOrCreate(ctx, fridayDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load friday config")
	}
	count, err := s.sessions.CountOnDate(ctx, fridayDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count friday sessions")
	}
	ended, err := s.sessions.AnyEndedOnDate(ctx, fridayDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to inspect friday sessions")
	}
	return &models.FridayConfigView{
		FridayConfig: *config,
		SessionCount: count,
		CanModify:    !ended,
	}, nil
}

// ToggleRecreational flips the recreational flag for a Friday. Once any
// session of that Friday has ended the program is settled and the toggle
// fails with ImmutableAfterCompletion. The flip itself is a CAS on the
// previous value.
func (s *FridayService) ToggleRecreational(ctx context.Context, fridayDate time.Time, recreational bool, toggledBy string) (*models.FridayConfigView, error) {
	fridayDate = dateOnly(fridayDate)
	if fridayDate.Weekday() != time.Friday {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date is not a friday")
	}
	config, err := s.configs.GetOrCreate(ctx, fridayDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load friday config")
	}
	ended, err := s.sessions.AnyEndedOnDate(ctx, fridayDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to inspect friday sessions")
	}
	if ended {
		return nil, appErrors.Clone(appErrors.ErrImmutableConfig, "")
	}
	if config.RecreationalDay != recreational {
		ok, err := s.configs.SetRecreational(ctx, config.ID, config.RecreationalDay, recreational, toggledBy, s.now().UTC())
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to toggle friday mode")
		}
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrStaleState, "")
		}
	}
	return s.GetConfig(ctx, fridayDate)
}

// Generate materializes the Friday program for the given date according to
// its config. Educational mode ensures one session per active halqa whose
// weekly days include Friday. Recreational mode adds one stage session per
// distinct stage of the accepted, active student body, spread over the time
// blocks in stage order. Existing sessions are counted, never recreated.
func (s *FridayService) Generate(ctx context.Context, fridayDate time.Time) (*models.GenerationOutcome, error) {
	fridayDate = dateOnly(fridayDate)
	if fridayDate.Weekday() != time.Friday {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date is not a friday")
	}
	config, err := s.configs.GetOrCreate(ctx, fridayDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load friday config")
	}

	outcome := &models.GenerationOutcome{FridayDate: fridayDate, Recreational: config.RecreationalDay}
	if config.RecreationalDay {
		err = s.generateRecreational(ctx, fridayDate, outcome)
	} else {
		err = s.generateEducational(ctx, fridayDate, outcome)
	}
	if err != nil {
		return nil, err
	}

	if err := s.configs.MarkGenerated(ctx, config.ID, s.now().UTC()); err != nil {
		s.logger.Warn("failed to stamp friday generation", zap.String("config_id", config.ID), zap.Error(err))
	}

	sessions, err := s.sessions.ListByDate(ctx, fridayDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list friday sessions")
	}
	outcome.Sessions = sessions

	s.logger.Info("friday program generated",
		zap.Time("friday", fridayDate),
		zap.Bool("recreational", config.RecreationalDay),
		zap.Int("created", outcome.Created),
		zap.Int("existing", outcome.Existing))
	return outcome, nil
}

// Schedule renders the day program of a Friday from its stored sessions.
func (s *FridayService) Schedule(ctx context.Context, fridayDate time.Time) ([]models.FridayScheduleItem, error) {
	fridayDate = dateOnly(fridayDate)
	sessions, err := s.sessions.ListByDate(ctx, fridayDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list friday sessions")
	}
	items := make([]models.FridayScheduleItem, 0, len(sessions))
	for _, session := range sessions {
		if session.DayType != models.DayTypeFriday {
			continue
		}
		item := models.FridayScheduleItem{
			Activity:  models.FridayEducational,
			Stage:     session.FridayStage,
			HalqaID:   session.HalqaID,
			SessionID: session.ID,
		}
		if session.FridayActivity != nil {
			item.Activity = *session.FridayActivity
		}
		if session.TimeBlock != nil {
			item.TimeBlock = *session.TimeBlock
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *FridayService) generateEducational(ctx context.Context, fridayDate time.Time, outcome *models.GenerationOutcome) error {
	halqat, err := s.halqat.ListActive(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list halqat")
	}
	activity := models.FridayEducational
	for i := range halqat {
		h := &halqat[i]
		if !h.MeetsOn(time.Friday) {
			continue
		}
		session := &models.Session{
			HalqaID:        &h.ID,
			Date:           fridayDate,
			DayType:        models.DayTypeFriday,
			Status:         models.SessionNotStarted,
			FridayActivity: &activity,
		}
		created, err := s.sessions.Materialize(ctx, session)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status,
				fmt.Sprintf("failed to materialize friday session for halqa %s", h.ID))
		}
		if created {
			outcome.Created++
		} else {
			outcome.Existing++
		}
	}
	return nil
}

func (s *FridayService) generateRecreational(ctx context.Context, fridayDate time.Time, outcome *models.GenerationOutcome) error {
	stages, err := s.students.ListAcceptedActiveStages(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list active stages")
	}
	present := make(map[models.Stage]bool, len(stages))
	for _, stage := range stages {
		present[stage] = true
	}

	activity := models.FridayRecreational
	for i, stage := range models.StageOrder {
		if !present[stage] {
			continue
		}
		stage := stage
		block := s.blockFor(i)
		session := &models.Session{
			Date:           fridayDate,
			DayType:        models.DayTypeFriday,
			Status:         models.SessionNotStarted,
			FridayActivity: &activity,
			FridayStage:    &stage,
			TimeBlock:      &block,
		}
		created, err := s.sessions.MaterializeRecreational(ctx, session)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status,
				fmt.Sprintf("failed to materialize recreational session for stage %s", stage))
		}
		if created {
			outcome.Created++
		} else {
			outcome.Existing++
		}
	}
	return nil
}

// blockFor maps a stage's position to a time block, wrapping when there are
// more stages than blocks.
func (s *FridayService) blockFor(stageIndex int) string {
	if len(s.timeBlocks) == 0 {
		return ""
	}
	return s.timeBlocks[stageIndex%len(s.timeBlocks)]
}
