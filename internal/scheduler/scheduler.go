package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/madarij-center/madarij-api/internal/models"
	"github.com/madarij-center/madarij-api/pkg/config"
)

type sessionMaterializer interface {
	MaterializeDate(ctx context.Context, date time.Time) (int, error)
}

type fridayGenerator interface {
	NextFriday() time.Time
	Generate(ctx context.Context, fridayDate time.Time) (*models.GenerationOutcome, error)
}

// Scheduler runs the recurring jobs that keep the session calendar filled:
// a daily materialization pass and the weekly Friday program generation.
type Scheduler struct {
	cron     *cron.Cron
	sessions sessionMaterializer
	friday   fridayGenerator
	cfg      config.SchedulerConfig
	logger   *zap.Logger
}

// New builds a scheduler from the configured cron specs. Jobs are registered
// but not running until Start is called.
func New(cfg config.SchedulerConfig, sessions sessionMaterializer, friday fridayGenerator, logger *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:     cron.New(),
		sessions: sessions,
		friday:   friday,
		cfg:      cfg,
		logger:   logger,
	}

	if _, err := s.cron.AddFunc(cfg.DailySpec, s.runDaily); err != nil {
		return nil, err
	}
	if _, err := s.cron.AddFunc(cfg.FridaySpec, s.runFriday); err != nil {
		return nil, err
	}

	return s, nil
}

// Start launches the cron loop. When StartupFriday is set the upcoming
// Friday program is generated immediately, so a restart close to Friday
// does not leave the week without a schedule.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started",
		zap.String("daily_spec", s.cfg.DailySpec),
		zap.String("friday_spec", s.cfg.FridaySpec))

	if s.cfg.StartupFriday {
		go s.runFriday()
	}
}

// Stop halts the cron loop and waits for in-flight jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) runDaily() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	today := time.Now().UTC()
	created, err := s.sessions.MaterializeDate(ctx, today)
	if err != nil {
		s.logger.Error("daily session materialization failed",
			zap.Time("date", today), zap.Error(err))
		return
	}
	s.logger.Info("daily sessions materialized",
		zap.Time("date", today), zap.Int("created", created))
}

func (s *Scheduler) runFriday() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	fridayDate := s.friday.NextFriday()
	outcome, err := s.friday.Generate(ctx, fridayDate)
	if err != nil {
		s.logger.Error("friday program generation failed",
			zap.Time("date", fridayDate), zap.Error(err))
		return
	}
	s.logger.Info("friday program generated",
		zap.Time("date", fridayDate),
		zap.Int("created", outcome.Created),
		zap.Int("existing", outcome.Existing))
}
