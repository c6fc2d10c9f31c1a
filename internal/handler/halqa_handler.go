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

type halqaManagementService interface {
	Create(ctx context.Context, req service.CreateHalqaRequest) (*models.Halqa, error)
	Get(ctx context.Context, id string) (*models.Halqa, error)
	List(ctx context.Context) ([]models.HalqaRoster, error)
}

type rosterService interface {
	Roster(ctx context.Context, halqaID string) ([]models.Student, error)
}

// HalqaHandler exposes halqa management endpoints.
type HalqaHandler struct {
	service  halqaManagementService
	students rosterService
}

// NewHalqaHandler constructs the handler.
func NewHalqaHandler(service halqaManagementService, students rosterService) *HalqaHandler {
	return &HalqaHandler{service: service, students: students}
}

// Create godoc
// @Summary Create a halqa
// @Tags Halqat
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateHalqaRequest true "Halqa"
// @Success 201 {object} response.Envelope
// @Router /halqat [post]
func (h *HalqaHandler) Create(c *gin.Context) {
	var req service.CreateHalqaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid JSON payload"))
		return
	}
	halqa, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, halqa)
}

// Get godoc
// @Summary Halqa detail
// @Tags Halqat
// @Produce json
// @Security BearerAuth
// @Param id path string true "Halqa ID"
// @Success 200 {object} response.Envelope
// @Router /halqat/{id} [get]
func (h *HalqaHandler) Get(c *gin.Context) {
	halqa, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, halqa, nil)
}

// List godoc
// @Summary List halqat with student counts
// @Tags Halqat
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /halqat [get]
func (h *HalqaHandler) List(c *gin.Context) {
	halqat, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, halqat, nil)
}

// Roster godoc
// @Summary Accepted students of a halqa
// @Tags Halqat
// @Produce json
// @Security BearerAuth
// @Param id path string true "Halqa ID"
// @Success 200 {object} response.Envelope
// @Router /halqat/{id}/students [get]
func (h *HalqaHandler) Roster(c *gin.Context) {
	students, err := h.students.Roster(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}
