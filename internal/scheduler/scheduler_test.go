package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/madarij-center/madarij-api/internal/models"
	"github.com/madarij-center/madarij-api/pkg/config"
)

type stubMaterializer struct {
	calls int32
	last  time.Time
}

func (s *stubMaterializer) MaterializeDate(_ context.Context, date time.Time) (int, error) {
	atomic.AddInt32(&s.calls, 1)
	s.last = date
	return 3, nil
}

type stubFriday struct {
	calls int32
	date  time.Time
}

func (s *stubFriday) NextFriday() time.Time { return s.date }

func (s *stubFriday) Generate(_ context.Context, fridayDate time.Time) (*models.GenerationOutcome, error) {
	atomic.AddInt32(&s.calls, 1)
	return &models.GenerationOutcome{FridayDate: fridayDate, Created: 2}, nil
}

func schedulerConfig() config.SchedulerConfig {
	return config.SchedulerConfig{
		Enabled:    true,
		DailySpec:  "0 5 * * *",
		FridaySpec: "30 5 * * 5",
	}
}

func TestNewRejectsBadCronSpec(t *testing.T) {
	cfg := schedulerConfig()
	cfg.DailySpec = "not a spec"

	_, err := New(cfg, &stubMaterializer{}, &stubFriday{}, zap.NewNop())
	require.Error(t, err)
}

func TestRunDailyMaterializesToday(t *testing.T) {
	sessions := &stubMaterializer{}
	s, err := New(schedulerConfig(), sessions, &stubFriday{}, zap.NewNop())
	require.NoError(t, err)

	s.runDaily()

	assert.EqualValues(t, 1, atomic.LoadInt32(&sessions.calls))
	assert.WithinDuration(t, time.Now().UTC(), sessions.last, time.Minute)
}

func TestRunFridayGeneratesUpcomingProgram(t *testing.T) {
	friday := &stubFriday{date: time.Date(2026, 1, 9, 0, 0, 0, 0, time.UTC)}
	s, err := New(schedulerConfig(), &stubMaterializer{}, friday, zap.NewNop())
	require.NoError(t, err)

	s.runFriday()

	assert.EqualValues(t, 1, atomic.LoadInt32(&friday.calls))
}
