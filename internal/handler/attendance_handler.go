package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/madarij-center/madarij-api/internal/models"
	"github.com/madarij-center/madarij-api/internal/service"
	appErrors "github.com/madarij-center/madarij-api/pkg/errors"
	"github.com/madarij-center/madarij-api/pkg/response"
)

type attendanceRecordingService interface {
	RecordAttendance(ctx context.Context, sessionID string, req service.RecordAttendanceRequest, recordedBy string) (*service.AttendanceBatchOutcome, error)
	MarkAllPresent(ctx context.Context, sessionID, recordedBy string) (*service.AttendanceBatchOutcome, error)
	ListBySession(ctx context.Context, sessionID string) ([]models.AttendanceRow, error)
}

type attendanceExportService interface {
	AttendanceSheet(ctx context.Context, sessionID string, format service.ExportFormat) (*service.ExportResult, error)
}

// AttendanceHandler exposes attendance recording and export endpoints.
type AttendanceHandler struct {
	service  attendanceRecordingService
	exporter attendanceExportService
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(service attendanceRecordingService, exporter attendanceExportService) *AttendanceHandler {
	return &AttendanceHandler{service: service, exporter: exporter}
}

// Record godoc
// @Summary Record an attendance batch for a session
// @Tags Attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Param payload body service.RecordAttendanceRequest true "Records"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /sessions/{id}/attendance [post]
func (h *AttendanceHandler) Record(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.RecordAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid JSON payload"))
		return
	}
	outcome, err := h.service.RecordAttendance(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcome, nil)
}

// MarkAllPresent godoc
// @Summary Mark every rostered student present
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/attendance/mark-all-present [post]
func (h *AttendanceHandler) MarkAllPresent(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	outcome, err := h.service.MarkAllPresent(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcome, nil)
}

// List godoc
// @Summary List attendance records of a session
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	rows, err := h.service.ListBySession(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// Export godoc
// @Summary Download the attendance sheet of a session
// @Tags Attendance
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /sessions/{id}/attendance/export [get]
func (h *AttendanceHandler) Export(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", string(service.ExportCSV)))
	result, err := h.exporter.AttendanceSheet(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+result.FileName+`"`)
	c.Data(http.StatusOK, result.ContentType, result.Data)
}
