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

type enrollmentService interface {
	CreateApplication(ctx context.Context, req service.CreateApplicationRequest) (*models.Student, error)
	ListPending(ctx context.Context) ([]models.Student, error)
	MarkFormGiven(ctx context.Context, studentID string) (*models.Student, error)
	SubmitForm(ctx context.Context, studentID string, req service.SubmitFormRequest) (*models.Student, error)
	ScheduleInterview(ctx context.Context, studentID, scheduledBy string) (*models.Student, *models.Interview, error)
	MarkInterviewCompleted(ctx context.Context, studentID string) (*models.Student, error)
	SetInterviewResult(ctx context.Context, studentID string, req service.InterviewResultRequest, decidedBy string) (*models.Student, error)
}

// EnrollmentHandler exposes the student intake pipeline.
type EnrollmentHandler struct {
	service enrollmentService
}

// NewEnrollmentHandler constructs the handler.
func NewEnrollmentHandler(service enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{service: service}
}

// Create godoc
// @Summary Register a new application
// @Tags Enrollment
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateApplicationRequest true "Application"
// @Success 201 {object} response.Envelope
// @Router /enrollment/applications [post]
func (h *EnrollmentHandler) Create(c *gin.Context) {
	var req service.CreateApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid JSON payload"))
		return
	}
	student, err := h.service.CreateApplication(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// ListPending godoc
// @Summary List applications still in the pipeline
// @Tags Enrollment
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /enrollment/applications [get]
func (h *EnrollmentHandler) ListPending(c *gin.Context) {
	students, err := h.service.ListPending(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}

// MarkFormGiven godoc
// @Summary Mark the registration form as handed out
// @Tags Enrollment
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /enrollment/applications/{id}/form-given [post]
func (h *EnrollmentHandler) MarkFormGiven(c *gin.Context) {
	student, err := h.service.MarkFormGiven(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// SubmitForm godoc
// @Summary Record the submitted registration form
// @Tags Enrollment
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Param payload body service.SubmitFormRequest false "Form data"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /enrollment/applications/{id}/form-submitted [post]
func (h *EnrollmentHandler) SubmitForm(c *gin.Context) {
	var req service.SubmitFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid JSON payload"))
		return
	}
	student, err := h.service.SubmitForm(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// ScheduleInterview godoc
// @Summary Reserve the next open interview slot
// @Tags Enrollment
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollment/applications/{id}/schedule-interview [post]
func (h *EnrollmentHandler) ScheduleInterview(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	student, interview, err := h.service.ScheduleInterview(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"student": student, "interview": interview}, nil)
}

// CompleteInterview godoc
// @Summary Mark the interview as conducted
// @Tags Enrollment
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /enrollment/applications/{id}/interview-completed [post]
func (h *EnrollmentHandler) CompleteInterview(c *gin.Context) {
	student, err := h.service.MarkInterviewCompleted(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// SetResult godoc
// @Summary Record the interview decision
// @Tags Enrollment
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Param payload body service.InterviewResultRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /enrollment/applications/{id}/result [post]
func (h *EnrollmentHandler) SetResult(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.InterviewResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid JSON payload"))
		return
	}
	student, err := h.service.SetInterviewResult(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}
