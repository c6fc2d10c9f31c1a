package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/madarij-center/madarij-api/internal/models"
	appErrors "github.com/madarij-center/madarij-api/pkg/errors"
	"github.com/madarij-center/madarij-api/pkg/response"
)

type fridayProgramService interface {
	NextFriday() time.Time
	GetConfig(ctx context.Context, fridayDate time.Time) (*models.FridayConfigView, error)
	ToggleRecreational(ctx context.Context, fridayDate time.Time, recreational bool, toggledBy string) (*models.FridayConfigView, error)
	Generate(ctx context.Context, fridayDate time.Time) (*models.GenerationOutcome, error)
	Schedule(ctx context.Context, fridayDate time.Time) ([]models.FridayScheduleItem, error)
}

// toggleRequest is the recreational flag payload.
type toggleRequest struct {
	Recreational bool `json:"is_recreational_day"`
}

// FridayHandler exposes the weekly Friday program.
type FridayHandler struct {
	service fridayProgramService
}

// NewFridayHandler constructs the handler.
func NewFridayHandler(service fridayProgramService) *FridayHandler {
	return &FridayHandler{service: service}
}

// fridayDate resolves the ?date= query, defaulting to the upcoming Friday.
func (h *FridayHandler) fridayDate(c *gin.Context) (time.Time, error) {
	raw := c.Query("date")
	if raw == "" {
		return h.service.NextFriday(), nil
	}
	return parseDateParam(raw)
}

// GetConfig godoc
// @Summary Friday program config
// @Tags Friday
// @Produce json
// @Security BearerAuth
// @Param date query string false "Friday date (YYYY-MM-DD), defaults to the upcoming Friday"
// @Success 200 {object} response.Envelope
// @Router /friday/config [get]
func (h *FridayHandler) GetConfig(c *gin.Context) {
	date, err := h.fridayDate(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	view, err := h.service.GetConfig(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Toggle godoc
// @Summary Toggle the recreational day flag
// @Tags Friday
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param date query string false "Friday date (YYYY-MM-DD)"
// @Param payload body toggleRequest true "Flag"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /friday/config [put]
func (h *FridayHandler) Toggle(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	date, err := h.fridayDate(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid JSON payload"))
		return
	}
	view, err := h.service.ToggleRecreational(c.Request.Context(), date, req.Recreational, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Generate godoc
// @Summary Generate the Friday sessions
// @Tags Friday
// @Produce json
// @Security BearerAuth
// @Param date query string false "Friday date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /friday/generate [post]
func (h *FridayHandler) Generate(c *gin.Context) {
	date, err := h.fridayDate(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	outcome, err := h.service.Generate(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcome, nil)
}

// Schedule godoc
// @Summary Friday day program
// @Tags Friday
// @Produce json
// @Security BearerAuth
// @Param date query string false "Friday date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /friday/schedule [get]
func (h *FridayHandler) Schedule(c *gin.Context) {
	date, err := h.fridayDate(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, err := h.service.Schedule(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}
