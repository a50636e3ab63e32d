package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/enrolldesk/enrolldesk-api/internal/models"
	"github.com/enrolldesk/enrolldesk-api/internal/service"
	appErrors "github.com/enrolldesk/enrolldesk-api/pkg/errors"
	"github.com/enrolldesk/enrolldesk-api/pkg/response"
)

// AuthHandler exposes operator authentication.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Login godoc
// @Summary Authenticate an operator
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Credentials"
// @Success 200 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
