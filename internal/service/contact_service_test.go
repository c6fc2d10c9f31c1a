package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/madarij-center/madarij-api/internal/models"
	"github.com/madarij-center/madarij-api/pkg/jobs"
)

type memContactLogStore struct {
	logs []models.ContactLog
}

func (m *memContactLogStore) Insert(_ context.Context, log *models.ContactLog) error {
	m.logs = append(m.logs, *log)
	return nil
}

func (m *memContactLogStore) ListByStudent(_ context.Context, studentID string) ([]models.ContactLog, error) {
	var out []models.ContactLog
	for _, log := range m.logs {
		if log.StudentID == studentID {
			out = append(out, log)
		}
	}
	return out, nil
}

type stubGuardianReader struct {
	guardians map[string]*models.Guardian
}

func (s *stubGuardianReader) FindByID(_ context.Context, id string) (*models.Guardian, error) {
	guardian, ok := s.guardians[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return guardian, nil
}

func TestDispatchRecordsContactLog(t *testing.T) {
	logs := &memContactLogStore{}
	guardians := &stubGuardianReader{guardians: map[string]*models.Guardian{
		"guardian-1": {ID: "guardian-1", Name: "أبو عمر", Phone: "0100000000", WhatsAppEnabled: true},
	}}
	svc := NewContactService(logs, guardians, 1, 1, zap.NewNop())

	err := svc.dispatch(context.Background(), jobs.Job{
		ID:   "job-1",
		Type: string(models.ContactReasonAcceptance),
		Payload: models.ContactEvent{
			GuardianID: "guardian-1",
			StudentID:  "student-1",
			Reason:     models.ContactReasonAcceptance,
			Detail:     "تم قبول الطالب",
		},
	})
	require.NoError(t, err)
	require.Len(t, logs.logs, 1)
	assert.Equal(t, models.ContactReasonAcceptance, logs.logs[0].Reason)
	assert.Equal(t, "student-1", logs.logs[0].StudentID)

	history, err := svc.History(context.Background(), "student-1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestDispatchFailsOnUnknownGuardian(t *testing.T) {
	svc := NewContactService(&memContactLogStore{}, &stubGuardianReader{guardians: map[string]*models.Guardian{}}, 1, 1, zap.NewNop())

	err := svc.dispatch(context.Background(), jobs.Job{
		Payload: models.ContactEvent{GuardianID: "missing", StudentID: "student-1"},
	})
	require.Error(t, err)
}

func TestContactOwedBeforeStartIsDropped(t *testing.T) {
	logs := &memContactLogStore{}
	svc := NewContactService(logs, &stubGuardianReader{}, 1, 1, zap.NewNop())

	// queue not started: the event is logged and dropped, never an error
	svc.ContactOwed(models.ContactEvent{GuardianID: "guardian-1", StudentID: "student-1", Reason: models.ContactReasonInterview})
	assert.Empty(t, logs.logs)
}
