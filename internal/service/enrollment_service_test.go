package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/madarij-center/madarij-api/internal/models"
	"github.com/madarij-center/madarij-api/internal/repository"
	appErrors "github.com/madarij-center/madarij-api/pkg/errors"
)

type mockStudentStore struct {
	students      map[string]*models.Student
	acceptedCount int
	casFail       bool
	lastPatch     repository.StatusPatch
	transitions   int
}

func newMockStudentStore(students ...*models.Student) *mockStudentStore {
	m := &mockStudentStore{students: make(map[string]*models.Student)}
	for _, s := range students {
		m.students[s.ID] = s
	}
	return m
}

func (m *mockStudentStore) FindByID(_ context.Context, id string) (*models.Student, error) {
	student, ok := m.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *student
	return &copied, nil
}

func (m *mockStudentStore) Create(_ context.Context, student *models.Student, guardian *models.Guardian) error {
	student.ID = "student-" + student.Name
	student.GuardianID = "guardian-" + guardian.Name
	student.ApplicationStatus = models.ApplicationNew
	m.students[student.ID] = student
	return nil
}

func (m *mockStudentStore) TransitionStatus(_ context.Context, id string, expected models.ApplicationStatus, patch repository.StatusPatch) (bool, error) {
	m.lastPatch = patch
	student, ok := m.students[id]
	if !ok || m.casFail || student.ApplicationStatus != expected {
		return false, nil
	}
	student.ApplicationStatus = patch.Status
	if patch.HalqaID != nil {
		student.HalqaID = patch.HalqaID
	}
	if patch.ClearHalqa {
		student.HalqaID = nil
	}
	m.transitions++
	return true, nil
}

func (m *mockStudentStore) CountAcceptedInHalqa(_ context.Context, _ string) (int, error) {
	return m.acceptedCount, nil
}

func (m *mockStudentStore) ListPendingApplications(_ context.Context) ([]models.Student, error) {
	var out []models.Student
	for _, s := range m.students {
		if !s.ApplicationStatus.Terminal() {
			out = append(out, *s)
		}
	}
	return out, nil
}

type mockHalqaReader struct {
	halqat map[string]*models.Halqa
}

func (m *mockHalqaReader) FindByID(_ context.Context, id string) (*models.Halqa, error) {
	halqa, ok := m.halqat[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return halqa, nil
}

type mockAllocator struct {
	interview *models.Interview
	err       error
	released  []string
}

func (m *mockAllocator) Allocate(_ context.Context, studentID, scheduledBy string) (*models.Interview, error) {
	if m.err != nil {
		return nil, m.err
	}
	copied := *m.interview
	copied.StudentID = studentID
	copied.ScheduledBy = scheduledBy
	return &copied, nil
}

func (m *mockAllocator) Release(_ context.Context, interviewID string) error {
	m.released = append(m.released, interviewID)
	return nil
}

type mockInterviewStore struct {
	open    *models.Interview
	results []models.InterviewResult
}

func (m *mockInterviewStore) FindOpenByStudent(_ context.Context, _ string) (*models.Interview, error) {
	if m.open == nil {
		return nil, sql.ErrNoRows
	}
	return m.open, nil
}

func (m *mockInterviewStore) SetResult(_ context.Context, _ string, result models.InterviewResult, _ *string, _ time.Time) (bool, error) {
	m.results = append(m.results, result)
	return true, nil
}

type recordingContacts struct {
	events []models.ContactEvent
}

func (r *recordingContacts) ContactOwed(event models.ContactEvent) {
	r.events = append(r.events, event)
}

func candidate(status models.ApplicationStatus) *models.Student {
	return &models.Student{
		ID:                "student-1",
		GuardianID:        "guardian-1",
		Name:              "عمر",
		Stage:             models.StagePreparatory,
		ApplicationStatus: status,
	}
}

func newEnrollment(students *mockStudentStore, halqat *mockHalqaReader, allocator *mockAllocator, interviews *mockInterviewStore, contacts *recordingContacts) *EnrollmentService {
	if halqat == nil {
		halqat = &mockHalqaReader{halqat: map[string]*models.Halqa{}}
	}
	if allocator == nil {
		allocator = &mockAllocator{interview: &models.Interview{ID: "interview-1"}}
	}
	if interviews == nil {
		interviews = &mockInterviewStore{}
	}
	if contacts == nil {
		contacts = &recordingContacts{}
	}
	return NewEnrollmentService(students, halqat, allocator, interviews, contacts, nil, zap.NewNop())
}

func TestMarkFormGivenAdvances(t *testing.T) {
	store := newMockStudentStore(candidate(models.ApplicationNew))
	svc := newEnrollment(store, nil, nil, nil, nil)

	student, err := svc.MarkFormGiven(context.Background(), "student-1")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationFormGiven, student.ApplicationStatus)
	assert.NotNil(t, store.lastPatch.FormGivenAt)
}

func TestMarkFormGivenRejectsLaterState(t *testing.T) {
	store := newMockStudentStore(candidate(models.ApplicationAccepted))
	svc := newEnrollment(store, nil, nil, nil, nil)

	_, err := svc.MarkFormGiven(context.Background(), "student-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition))
	assert.Zero(t, store.transitions)
}

func TestTransitionReportsStaleState(t *testing.T) {
	store := newMockStudentStore(candidate(models.ApplicationFormGiven))
	store.casFail = true
	svc := newEnrollment(store, nil, nil, nil, nil)

	_, err := svc.SubmitForm(context.Background(), "student-1", SubmitFormRequest{})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrStaleState))
}

func TestScheduleInterviewReservesAndAdvances(t *testing.T) {
	store := newMockStudentStore(candidate(models.ApplicationFormSubmitted))
	allocator := &mockAllocator{interview: &models.Interview{ID: "interview-1", DayOfWeek: "السبت", TimeSlot: "بعد العصر ١"}}
	contacts := &recordingContacts{}
	svc := newEnrollment(store, nil, allocator, nil, contacts)

	student, interview, err := svc.ScheduleInterview(context.Background(), "student-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationInterviewScheduled, student.ApplicationStatus)
	assert.Equal(t, "interview-1", interview.ID)
	require.Len(t, contacts.events, 1)
	assert.Equal(t, models.ContactReasonInterview, contacts.events[0].Reason)
}

func TestScheduleInterviewSurfacesNoSlot(t *testing.T) {
	store := newMockStudentStore(candidate(models.ApplicationFormSubmitted))
	allocator := &mockAllocator{err: appErrors.Clone(appErrors.ErrNoSlotAvailable, "")}
	svc := newEnrollment(store, nil, allocator, nil, nil)

	_, _, err := svc.ScheduleInterview(context.Background(), "student-1", "user-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNoSlotAvailable))
	assert.Equal(t, models.ApplicationFormSubmitted, store.students["student-1"].ApplicationStatus)
}

func TestScheduleInterviewReleasesSlotOnLostRace(t *testing.T) {
	store := newMockStudentStore(candidate(models.ApplicationFormSubmitted))
	store.casFail = true
	allocator := &mockAllocator{interview: &models.Interview{ID: "interview-1"}}
	svc := newEnrollment(store, nil, allocator, nil, nil)

	_, _, err := svc.ScheduleInterview(context.Background(), "student-1", "user-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrStaleState))
	assert.Equal(t, []string{"interview-1"}, allocator.released)
}

func TestSetInterviewResultAcceptedAssignsHalqa(t *testing.T) {
	store := newMockStudentStore(candidate(models.ApplicationInterviewCompleted))
	halqat := &mockHalqaReader{halqat: map[string]*models.Halqa{
		"halqa-1": {ID: "halqa-1", MaxStudents: 10, Active: true},
	}}
	interviews := &mockInterviewStore{open: &models.Interview{ID: "interview-1"}}
	contacts := &recordingContacts{}
	svc := newEnrollment(store, halqat, nil, interviews, contacts)

	halqaID := "halqa-1"
	student, err := svc.SetInterviewResult(context.Background(), "student-1", InterviewResultRequest{
		Result:  models.ResultAccepted,
		HalqaID: &halqaID,
	}, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationAccepted, student.ApplicationStatus)
	require.NotNil(t, student.HalqaID)
	assert.Equal(t, "halqa-1", *student.HalqaID)
	assert.NotNil(t, store.lastPatch.AcceptedAt)
	assert.Equal(t, []models.InterviewResult{models.ResultAccepted}, interviews.results)
	require.Len(t, contacts.events, 1)
	assert.Equal(t, models.ContactReasonAcceptance, contacts.events[0].Reason)
}

func TestSetInterviewResultAcceptedChecksCapacity(t *testing.T) {
	store := newMockStudentStore(candidate(models.ApplicationInterviewCompleted))
	store.acceptedCount = 10
	halqat := &mockHalqaReader{halqat: map[string]*models.Halqa{
		"halqa-1": {ID: "halqa-1", MaxStudents: 10, Active: true},
	}}
	svc := newEnrollment(store, halqat, nil, nil, nil)

	halqaID := "halqa-1"
	_, err := svc.SetInterviewResult(context.Background(), "student-1", InterviewResultRequest{
		Result:  models.ResultAccepted,
		HalqaID: &halqaID,
	}, "user-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrCapacityExceeded))
	assert.Equal(t, models.ApplicationInterviewCompleted, store.students["student-1"].ApplicationStatus)
}

func TestSetInterviewResultPendingKeepsNoHalqa(t *testing.T) {
	store := newMockStudentStore(candidate(models.ApplicationInterviewCompleted))
	svc := newEnrollment(store, nil, nil, nil, nil)

	student, err := svc.SetInterviewResult(context.Background(), "student-1", InterviewResultRequest{
		Result: models.ResultPending,
	}, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationPending, student.ApplicationStatus)
	assert.Nil(t, student.HalqaID)
	assert.True(t, store.lastPatch.ClearHalqa)
}

func TestSetInterviewResultRejectsUnknownResult(t *testing.T) {
	store := newMockStudentStore(candidate(models.ApplicationInterviewCompleted))
	svc := newEnrollment(store, nil, nil, nil, nil)

	_, err := svc.SetInterviewResult(context.Background(), "student-1", InterviewResultRequest{
		Result: models.InterviewResult("maybe"),
	}, "user-1")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidResult))
}

func TestPipelineNeverMovesBackward(t *testing.T) {
	for _, terminal := range []models.ApplicationStatus{models.ApplicationAccepted, models.ApplicationRejected} {
		store := newMockStudentStore(candidate(terminal))
		svc := newEnrollment(store, nil, nil, nil, nil)

		_, err := svc.MarkFormGiven(context.Background(), "student-1")
		assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition), "MarkFormGiven from %s", terminal)
		_, err = svc.SubmitForm(context.Background(), "student-1", SubmitFormRequest{})
		assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition), "SubmitForm from %s", terminal)
		_, _, err = svc.ScheduleInterview(context.Background(), "student-1", "user-1")
		assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition), "ScheduleInterview from %s", terminal)
		_, err = svc.SetInterviewResult(context.Background(), "student-1", InterviewResultRequest{Result: models.ResultPending}, "user-1")
		assert.True(t, appErrors.Is(err, appErrors.ErrInvalidTransition), "SetInterviewResult from %s", terminal)
		assert.Zero(t, store.transitions)
	}
}

func TestHalqaSetExactlyWhenAccepted(t *testing.T) {
	store := newMockStudentStore(candidate(models.ApplicationNew))
	halqat := &mockHalqaReader{halqat: map[string]*models.Halqa{
		"halqa-1": {ID: "halqa-1", MaxStudents: 10, Active: true},
	}}
	allocator := &mockAllocator{interview: &models.Interview{ID: "interview-1"}}
	svc := newEnrollment(store, halqat, allocator, nil, nil)
	ctx := context.Background()

	check := func(label string) {
		student := store.students["student-1"]
		if student.ApplicationStatus == models.ApplicationAccepted {
			assert.NotNil(t, student.HalqaID, label)
		} else {
			assert.Nil(t, student.HalqaID, label)
		}
	}

	_, err := svc.MarkFormGiven(ctx, "student-1")
	require.NoError(t, err)
	check("after form given")

	_, err = svc.SubmitForm(ctx, "student-1", SubmitFormRequest{})
	require.NoError(t, err)
	check("after form submitted")

	_, _, err = svc.ScheduleInterview(ctx, "student-1", "user-1")
	require.NoError(t, err)
	check("after interview scheduled")

	_, err = svc.MarkInterviewCompleted(ctx, "student-1")
	require.NoError(t, err)
	check("after interview completed")

	_, err = svc.SetInterviewResult(ctx, "student-1", InterviewResultRequest{Result: models.ResultPending}, "user-1")
	require.NoError(t, err)
	check("after pending")

	halqaID := "halqa-1"
	_, err = svc.SetInterviewResult(ctx, "student-1", InterviewResultRequest{Result: models.ResultAccepted, HalqaID: &halqaID}, "user-1")
	require.NoError(t, err)
	check("after acceptance")
}
