package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/madarij-center/madarij-api/internal/service"
	"github.com/madarij-center/madarij-api/pkg/response"
)

type dashboardService interface {
	Snapshot(ctx context.Context) (*service.DashboardSnapshot, error)
	Invalidate(ctx context.Context)
}

// DashboardHandler serves the aggregated center overview.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Snapshot godoc
// @Summary Center overview snapshot
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Snapshot(c *gin.Context) {
	snapshot, err := h.service.Snapshot(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}

// Refresh godoc
// @Summary Drop the cached snapshot
// @Tags Dashboard
// @Security BearerAuth
// @Success 204
// @Router /dashboard/refresh [post]
func (h *DashboardHandler) Refresh(c *gin.Context) {
	h.service.Invalidate(c.Request.Context())
	response.NoContent(c)
}
