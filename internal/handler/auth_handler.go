package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/madarij-center/madarij-api/internal/service"
	appErrors "github.com/madarij-center/madarij-api/pkg/errors"
	"github.com/madarij-center/madarij-api/pkg/response"
)

// AuthHandler exposes authentication endpoints.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(service *service.AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

// Login godoc
// @Summary Staff login
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body service.LoginRequest true "Credentials"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid JSON payload"))
		return
	}
	resp, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// Me godoc
// @Summary Current account
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	user, err := h.service.Me(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}
