package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/madarij-center/madarij-api/internal/models"
	appErrors "github.com/madarij-center/madarij-api/pkg/errors"
)

// gridInterviewStore enforces per-(date, slot) capacity like the SQL
// reservation does, serialized by a mutex.
type gridInterviewStore struct {
	mu       sync.Mutex
	reserved map[string]int
	attempts int
}

func newGridStore() *gridInterviewStore {
	return &gridInterviewStore{reserved: make(map[string]int)}
}

func slotKey(date time.Time, slot string) string {
	return fmt.Sprintf("%s|%s", date.Format("2006-01-02"), slot)
}

func (g *gridInterviewStore) Reserve(_ context.Context, interview *models.Interview, capacity int) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.attempts++
	key := slotKey(interview.ScheduledDate, interview.TimeSlot)
	if g.reserved[key] >= capacity {
		return false, nil
	}
	g.reserved[key]++
	interview.ID = fmt.Sprintf("interview-%d", g.attempts)
	return true, nil
}

func (g *gridInterviewStore) FindByID(_ context.Context, _ string) (*models.Interview, error) {
	return nil, fmt.Errorf("not implemented")
}

func (g *gridInterviewStore) ListUpcoming(_ context.Context, _ time.Time) ([]models.InterviewDetail, error) {
	return nil, nil
}

func (g *gridInterviewStore) SetResult(_ context.Context, _ string, _ models.InterviewResult, _ *string, _ time.Time) (bool, error) {
	return true, nil
}

func (g *gridInterviewStore) Cancel(_ context.Context, _ string) (bool, error) {
	return true, nil
}

func (g *gridInterviewStore) fill(date time.Time, slot string, capacity int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reserved[slotKey(date, slot)] = capacity
}

var testSlots = []string{"بعد العصر ١", "بعد العصر ٢"}

// fixed reference: Wednesday 2026-01-07.
var wednesday = time.Date(2026, time.January, 7, 10, 0, 0, 0, time.UTC)

func newAllocatorService(store *gridInterviewStore, capacity int) *InterviewService {
	svc := NewInterviewService(store, []time.Weekday{time.Saturday, time.Tuesday}, testSlots, capacity, 8, zap.NewNop())
	svc.now = func() time.Time { return wednesday }
	return svc
}

func TestAllocatePicksNearestEligibleSlot(t *testing.T) {
	store := newGridStore()
	svc := newAllocatorService(store, 1)

	interview, err := svc.Allocate(context.Background(), "student-1", "user-1")
	require.NoError(t, err)
	// Wednesday the 7th: the next eligible day is Saturday the 10th.
	assert.Equal(t, time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC), interview.ScheduledDate)
	assert.Equal(t, "السبت", interview.DayOfWeek)
	assert.Equal(t, testSlots[0], interview.TimeSlot)
	assert.Equal(t, models.InterviewScheduled, interview.Status)
}

func TestAllocateBooksSameDayWhenEligible(t *testing.T) {
	store := newGridStore()
	svc := newAllocatorService(store, 1)
	saturday := time.Date(2026, time.January, 10, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return saturday }

	interview, err := svc.Allocate(context.Background(), "student-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC), interview.ScheduledDate)
	assert.Equal(t, "السبت", interview.DayOfWeek)
}

func TestAllocateSkipsFullSlots(t *testing.T) {
	store := newGridStore()
	saturday := time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)
	store.fill(saturday, testSlots[0], 1)
	svc := newAllocatorService(store, 1)

	interview, err := svc.Allocate(context.Background(), "student-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, saturday, interview.ScheduledDate)
	assert.Equal(t, testSlots[1], interview.TimeSlot)
}

func TestAllocateRollsOverToNextEligibleDay(t *testing.T) {
	store := newGridStore()
	saturday := time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)
	for _, slot := range testSlots {
		store.fill(saturday, slot, 1)
	}
	svc := newAllocatorService(store, 1)

	interview, err := svc.Allocate(context.Background(), "student-1", "user-1")
	require.NoError(t, err)
	// Saturday full: the following Tuesday the 13th wins.
	assert.Equal(t, time.Date(2026, time.January, 13, 0, 0, 0, 0, time.UTC), interview.ScheduledDate)
	assert.Equal(t, "الثلاثاء", interview.DayOfWeek)
	assert.Equal(t, testSlots[0], interview.TimeSlot)
}

func TestAllocateExhaustedHorizon(t *testing.T) {
	store := newGridStore()
	for offset := 1; offset <= 8*7; offset++ {
		date := time.Date(2026, time.January, 7, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
		for _, slot := range testSlots {
			store.fill(date, slot, 1)
		}
	}
	svc := newAllocatorService(store, 1)

	_, err := svc.Allocate(context.Background(), "student-1", "user-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNoSlotAvailable))
}

func TestAllocateNeverExceedsCapacityUnderContention(t *testing.T) {
	const capacity = 2
	store := newGridStore()
	svc := newAllocatorService(store, capacity)

	const callers = 16
	var wg sync.WaitGroup
	interviews := make([]*models.Interview, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			interview, err := svc.Allocate(context.Background(), fmt.Sprintf("student-%d", i), "user-1")
			if assert.NoError(t, err) {
				interviews[i] = interview
			}
		}(i)
	}
	wg.Wait()

	perSlot := make(map[string]int)
	for _, interview := range interviews {
		if interview == nil {
			continue
		}
		perSlot[slotKey(interview.ScheduledDate, interview.TimeSlot)]++
	}
	for key, count := range perSlot {
		assert.LessOrEqual(t, count, capacity, "slot %s over capacity", key)
	}
}
