package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/madarij-center/madarij-api/internal/models"
	appErrors "github.com/madarij-center/madarij-api/pkg/errors"
)

type memFridayConfigStore struct {
	configs map[string]*models.FridayConfig
	casFail bool
}

func newMemFridayConfigStore() *memFridayConfigStore {
	return &memFridayConfigStore{configs: make(map[string]*models.FridayConfig)}
}

func (m *memFridayConfigStore) GetOrCreate(_ context.Context, fridayDate time.Time) (*models.FridayConfig, error) {
	key := fridayDate.Format("2006-01-02")
	if config, ok := m.configs[key]; ok {
		copied := *config
		return &copied, nil
	}
	config := &models.FridayConfig{ID: "config-" + key, FridayDate: fridayDate}
	m.configs[key] = config
	copied := *config
	return &copied, nil
}

func (m *memFridayConfigStore) SetRecreational(_ context.Context, id string, expected, next bool, _ string, at time.Time) (bool, error) {
	if m.casFail {
		return false, nil
	}
	for _, config := range m.configs {
		if config.ID == id && config.RecreationalDay == expected {
			config.RecreationalDay = next
			config.ToggledAt = &at
			return true, nil
		}
	}
	return false, nil
}

func (m *memFridayConfigStore) MarkGenerated(_ context.Context, id string, at time.Time) error {
	for _, config := range m.configs {
		if config.ID == id {
			config.GeneratedAt = &at
		}
	}
	return nil
}

type stubStageList struct {
	stages []models.Stage
}

func (s *stubStageList) ListAcceptedActiveStages(_ context.Context) ([]models.Stage, error) {
	return s.stages, nil
}

var fridayBlocks = []string{"بعد الفجر", "بعد الجمعة", "بعد العصر", "بعد المغرب"}

// 2026-01-09 is a Friday.
var testFriday = time.Date(2026, time.January, 9, 0, 0, 0, 0, time.UTC)

func newFriday(configs *memFridayConfigStore, sessions *memSessionStore, halqat *stubHalqaList, stages *stubStageList) *FridayService {
	if configs == nil {
		configs = newMemFridayConfigStore()
	}
	if sessions == nil {
		sessions = newMemSessionStore()
	}
	if halqat == nil {
		halqat = &stubHalqaList{}
	}
	if stages == nil {
		stages = &stubStageList{}
	}
	return NewFridayService(configs, sessions, halqat, stages, fridayBlocks, zap.NewNop())
}

func TestGenerateEducationalOnlyFridayHalqat(t *testing.T) {
	sessions := newMemSessionStore()
	halqat := &stubHalqaList{halqat: []models.Halqa{
		halqaMeeting("halqa-1", models.DaySaturday, models.DayMonday),
		halqaMeeting("halqa-2", models.DayFriday),
	}}
	svc := newFriday(nil, sessions, halqat, nil)

	outcome, err := svc.Generate(context.Background(), testFriday)
	require.NoError(t, err)
	assert.False(t, outcome.Recreational)
	assert.Equal(t, 1, outcome.Created)
	require.Len(t, outcome.Sessions, 1)
	session := outcome.Sessions[0]
	assert.Equal(t, "halqa-2", *session.HalqaID)
	assert.Equal(t, models.DayTypeFriday, session.DayType)
	require.NotNil(t, session.FridayActivity)
	assert.Equal(t, models.FridayEducational, *session.FridayActivity)
}

func TestGenerateTwiceIsIdempotent(t *testing.T) {
	sessions := newMemSessionStore()
	halqat := &stubHalqaList{halqat: []models.Halqa{halqaMeeting("halqa-1", models.DayFriday)}}
	svc := newFriday(nil, sessions, halqat, nil)
	ctx := context.Background()

	first, err := svc.Generate(ctx, testFriday)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Created)

	second, err := svc.Generate(ctx, testFriday)
	require.NoError(t, err)
	assert.Zero(t, second.Created)
	assert.Equal(t, 1, second.Existing)
	assert.Len(t, sessions.sessions, 1)
}

func TestGenerateRecreationalOneSessionPerStage(t *testing.T) {
	configs := newMemFridayConfigStore()
	sessions := newMemSessionStore()
	stages := &stubStageList{stages: []models.Stage{models.StagePrimary, models.StageSecondary}}
	svc := newFriday(configs, sessions, nil, stages)
	ctx := context.Background()

	_, err := svc.ToggleRecreational(ctx, testFriday, true, "user-1")
	require.NoError(t, err)

	outcome, err := svc.Generate(ctx, testFriday)
	require.NoError(t, err)
	assert.True(t, outcome.Recreational)
	assert.Equal(t, 2, outcome.Created)

	byStage := make(map[models.Stage]models.Session)
	for _, session := range outcome.Sessions {
		require.NotNil(t, session.FridayStage)
		require.NotNil(t, session.FridayActivity)
		assert.Equal(t, models.FridayRecreational, *session.FridayActivity)
		assert.Nil(t, session.HalqaID)
		byStage[*session.FridayStage] = session
	}
	require.Len(t, byStage, 2)
	// blocks follow stage order: primary is first, secondary third
	assert.Equal(t, fridayBlocks[0], *byStage[models.StagePrimary].TimeBlock)
	assert.Equal(t, fridayBlocks[2], *byStage[models.StageSecondary].TimeBlock)
}

func TestGenerateRecreationalTwiceIsIdempotent(t *testing.T) {
	configs := newMemFridayConfigStore()
	sessions := newMemSessionStore()
	stages := &stubStageList{stages: []models.Stage{models.StagePrimary}}
	svc := newFriday(configs, sessions, nil, stages)
	ctx := context.Background()

	_, err := svc.ToggleRecreational(ctx, testFriday, true, "user-1")
	require.NoError(t, err)

	_, err = svc.Generate(ctx, testFriday)
	require.NoError(t, err)
	second, err := svc.Generate(ctx, testFriday)
	require.NoError(t, err)
	assert.Zero(t, second.Created)
	assert.Len(t, sessions.sessions, 1)
}

func TestToggleFrozenAfterAnySessionEnds(t *testing.T) {
	configs := newMemFridayConfigStore()
	ended := time.Now().UTC()
	sessions := newMemSessionStore(&models.Session{
		ID: "session-1", Date: testFriday, DayType: models.DayTypeFriday,
		Status: models.SessionEnded, EndedAt: &ended,
	})
	svc := newFriday(configs, sessions, nil, nil)

	_, err := svc.ToggleRecreational(context.Background(), testFriday, true, "user-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrImmutableConfig))

	view, err := svc.GetConfig(context.Background(), testFriday)
	require.NoError(t, err)
	assert.False(t, view.RecreationalDay)
	assert.False(t, view.CanModify)
}

func TestToggleReportsStaleState(t *testing.T) {
	configs := newMemFridayConfigStore()
	configs.casFail = true
	svc := newFriday(configs, newMemSessionStore(), nil, nil)

	_, err := svc.ToggleRecreational(context.Background(), testFriday, true, "user-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrStaleState))
}

func TestToggleRejectsNonFriday(t *testing.T) {
	svc := newFriday(nil, nil, nil, nil)
	saturday := time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)

	_, err := svc.ToggleRecreational(context.Background(), saturday, true, "user-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestToggleBackBeforeCompletionRegeneratesCleanly(t *testing.T) {
	configs := newMemFridayConfigStore()
	sessions := newMemSessionStore()
	halqat := &stubHalqaList{halqat: []models.Halqa{halqaMeeting("halqa-1", models.DayFriday)}}
	stages := &stubStageList{stages: []models.Stage{models.StagePrimary}}
	svc := newFriday(configs, sessions, halqat, stages)
	ctx := context.Background()

	// educational first
	outcome, err := svc.Generate(ctx, testFriday)
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Created)

	// flip to recreational while nothing ended; the stage session is added
	_, err = svc.ToggleRecreational(ctx, testFriday, true, "user-1")
	require.NoError(t, err)
	outcome, err = svc.Generate(ctx, testFriday)
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Created)
	assert.Len(t, outcome.Sessions, 2)
}
