package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/madarij-center/madarij-api/internal/models"
	"github.com/madarij-center/madarij-api/internal/service"
	"github.com/madarij-center/madarij-api/pkg/response"
)

type studentReadService interface {
	Get(ctx context.Context, id string) (*service.StudentProfile, error)
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
}

type contactHistoryService interface {
	History(ctx context.Context, studentID string) ([]models.ContactLog, error)
}

// StudentHandler exposes student read endpoints.
type StudentHandler struct {
	service  studentReadService
	contacts contactHistoryService
}

// NewStudentHandler constructs the handler.
func NewStudentHandler(service studentReadService, contacts contactHistoryService) *StudentHandler {
	return &StudentHandler{service: service, contacts: contacts}
}

// List godoc
// @Summary List students
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Param stage query string false "Education stage"
// @Param halqaId query string false "Halqa ID"
// @Param applicationStatus query string false "Application status"
// @Param activeOnly query bool false "Active students only"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	filter := models.StudentFilter{
		Stage:             models.Stage(c.Query("stage")),
		HalqaID:           c.Query("halqaId"),
		ApplicationStatus: models.ApplicationStatus(c.Query("applicationStatus")),
		ActiveOnly:        c.Query("activeOnly") == "true",
		Page:              parseQueryInt(c, "page", 1),
		PageSize:          parseQueryInt(c, "limit", 20),
	}
	students, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}

// Get godoc
// @Summary Student detail with guardian
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	profile, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// ContactHistory godoc
// @Summary Guardian contact trace of a student
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/contacts [get]
func (h *StudentHandler) ContactHistory(c *gin.Context) {
	logs, err := h.contacts.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}
