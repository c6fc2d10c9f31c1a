package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/madarij-center/madarij-api/internal/models"
	"github.com/madarij-center/madarij-api/pkg/response"
)

type interviewListingService interface {
	ListUpcoming(ctx context.Context) ([]models.InterviewDetail, error)
	Cancel(ctx context.Context, interviewID string) error
}

// InterviewHandler exposes the interview calendar.
type InterviewHandler struct {
	service interviewListingService
}

// NewInterviewHandler constructs the handler.
func NewInterviewHandler(service interviewListingService) *InterviewHandler {
	return &InterviewHandler{service: service}
}

// ListUpcoming godoc
// @Summary List upcoming interviews
// @Tags Interviews
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /interviews [get]
func (h *InterviewHandler) ListUpcoming(c *gin.Context) {
	interviews, err := h.service.ListUpcoming(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, interviews, nil)
}

// Cancel godoc
// @Summary Cancel an open interview
// @Tags Interviews
// @Produce json
// @Security BearerAuth
// @Param id path string true "Interview ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /interviews/{id} [delete]
func (h *InterviewHandler) Cancel(c *gin.Context) {
	if err := h.service.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
