package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/madarij-center/madarij-api/internal/models"
	"github.com/madarij-center/madarij-api/pkg/response"
)

type sessionLifecycleService interface {
	MaterializeDate(ctx context.Context, date time.Time) (int, error)
	Start(ctx context.Context, sessionID string) (*models.Session, error)
	End(ctx context.Context, sessionID string) (*models.Session, error)
	Get(ctx context.Context, sessionID string) (*models.SessionWithStats, error)
	List(ctx context.Context, filter models.SessionFilter) ([]models.Session, int, error)
	ListByDate(ctx context.Context, date time.Time) ([]models.Session, error)
}

// SessionHandler exposes session materialization and lifecycle endpoints.
type SessionHandler struct {
	service sessionLifecycleService
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(service sessionLifecycleService) *SessionHandler {
	return &SessionHandler{service: service}
}

// Materialize godoc
// @Summary Create the day's sessions for every halqa meeting that day
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /sessions/materialize [post]
func (h *SessionHandler) Materialize(c *gin.Context) {
	date, err := parseDateParam(c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	created, err := h.service.MaterializeDate(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"created": created}, nil)
}

// Start godoc
// @Summary Start a session
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /sessions/{id}/start [post]
func (h *SessionHandler) Start(c *gin.Context) {
	session, err := h.service.Start(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// End godoc
// @Summary End a session
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /sessions/{id}/end [post]
func (h *SessionHandler) End(c *gin.Context) {
	session, err := h.service.End(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Get godoc
// @Summary Session detail with attendance stats
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// List godoc
// @Summary List sessions
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Param halqaId query string false "Halqa ID"
// @Param dayType query string false "Day type"
// @Param status query string false "Session status"
// @Param dateFrom query string false "From date (YYYY-MM-DD)"
// @Param dateTo query string false "To date (YYYY-MM-DD)"
// @Param date query string false "Exact date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	if raw := c.Query("date"); raw != "" {
		date, err := parseDateParam(raw)
		if err != nil {
			response.Error(c, err)
			return
		}
		sessions, err := h.service.ListByDate(c.Request.Context(), date)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, sessions, nil)
		return
	}

	filter := models.SessionFilter{
		HalqaID:  c.Query("halqaId"),
		DayType:  models.DayType(c.Query("dayType")),
		Status:   models.SessionStatus(c.Query("status")),
		Page:     parseQueryInt(c, "page", 1),
		PageSize: parseQueryInt(c, "limit", 20),
	}
	if raw := c.Query("dateFrom"); raw != "" {
		date, err := parseDateParam(raw)
		if err != nil {
			response.Error(c, err)
			return
		}
		filter.DateFrom = &date
	}
	if raw := c.Query("dateTo"); raw != "" {
		date, err := parseDateParam(raw)
		if err != nil {
			response.Error(c, err)
			return
		}
		filter.DateTo = &date
	}

	sessions, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}
