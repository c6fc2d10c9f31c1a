package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/madarij-center/madarij-api/internal/models"
	appErrors "github.com/madarij-center/madarij-api/pkg/errors"
	"github.com/madarij-center/madarij-api/pkg/export"
)

func exportFixture(t *testing.T) *ExportService {
	t.Helper()
	halqaID := "halqa-1"
	sessions := &stubSessionReader{sessions: map[string]*models.Session{
		"session-1": {
			ID:      "session-1",
			HalqaID: &halqaID,
			Date:    time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC),
			Status:  models.SessionEnded,
		},
	}}
	store := newMemAttendanceStore()
	_, err := store.Upsert(context.Background(), &models.Attendance{
		StudentID: "student-1", SessionID: "session-1", Status: models.AttendancePresent, RecordedBy: "user-1",
	})
	require.NoError(t, err)
	return NewExportService(sessions, store, export.NewCSVExporter(), export.NewPDFExporter(), zap.NewNop())
}

func TestAttendanceSheetCSV(t *testing.T) {
	svc := exportFixture(t)

	result, err := svc.AttendanceSheet(context.Background(), "session-1", ExportCSV)
	require.NoError(t, err)
	assert.Equal(t, "attendance-2026-01-10.csv", result.FileName)
	assert.Equal(t, "text/csv; charset=utf-8", result.ContentType)
	assert.True(t, strings.Contains(string(result.Data), string(models.AttendancePresent)))
}

func TestAttendanceSheetPDF(t *testing.T) {
	svc := exportFixture(t)

	result, err := svc.AttendanceSheet(context.Background(), "session-1", ExportPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, len(result.Data) > 0)
}

func TestAttendanceSheetUnknownFormat(t *testing.T) {
	svc := exportFixture(t)

	_, err := svc.AttendanceSheet(context.Background(), "session-1", ExportFormat("xlsx"))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}
