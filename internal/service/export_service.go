package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/madarij-center/madarij-api/internal/models"
	appErrors "github.com/madarij-center/madarij-api/pkg/errors"
	"github.com/madarij-center/madarij-api/pkg/export"
)

// ExportFormat selects the attendance sheet output format.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)

type sheetRenderer interface {
	Render(sheet export.Sheet) ([]byte, error)
}

type exportSessionReader interface {
	FindByID(ctx context.Context, id string) (*models.Session, error)
}

type exportAttendanceReader interface {
	ListBySession(ctx context.Context, sessionID string) ([]models.AttendanceRow, error)
}

// ExportResult carries rendered bytes plus the response metadata.
type ExportResult struct {
	FileName    string
	ContentType string
	Data        []byte
}

// ExportService renders attendance sheets for download.
type ExportService struct {
	sessions   exportSessionReader
	attendance exportAttendanceReader
	csv        sheetRenderer
	pdf        sheetRenderer
	logger     *zap.Logger
}

// NewExportService constructs ExportService.
func NewExportService(sessions exportSessionReader, attendance exportAttendanceReader, csv, pdf sheetRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{sessions: sessions, attendance: attendance, csv: csv, pdf: pdf, logger: logger}
}

// AttendanceSheet renders the attendance of one session in the requested
// format.
func (s *ExportService) AttendanceSheet(ctx context.Context, sessionID string, format ExportFormat) (*ExportResult, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
	}
	rows, err := s.attendance.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}

	sheet := export.Sheet{
		Title:   fmt.Sprintf("كشف الحضور %s", session.Date.Format("2006-01-02")),
		Columns: []string{"الاسم", "المرحلة", "الحالة", "سبب الغياب"},
	}
	for _, row := range rows {
		reason := ""
		if row.AbsenceReason != nil {
			reason = *row.AbsenceReason
		}
		sheet.Rows = append(sheet.Rows, []string{
			row.StudentName,
			string(row.StudentStage),
			string(row.Status),
			reason,
		})
	}

	date := session.Date.Format("2006-01-02")
	switch format {
	case ExportCSV:
		data, err := s.csv.Render(sheet)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{
			FileName:    fmt.Sprintf("attendance-%s.csv", date),
			ContentType: "text/csv; charset=utf-8",
			Data:        data,
		}, nil
	case ExportPDF:
		data, err := s.pdf.Render(sheet)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{
			FileName:    fmt.Sprintf("attendance-%s.pdf", date),
			ContentType: "application/pdf",
			Data:        data,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("unsupported format %q, expected %s", format,
				strings.Join([]string{string(ExportCSV), string(ExportPDF)}, " or ")))
	}
}
