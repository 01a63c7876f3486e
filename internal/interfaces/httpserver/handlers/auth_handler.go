package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/harmix/assistant-api/internal/domain/user"
	"github.com/harmix/assistant-api/internal/interfaces/httpserver/middlewares"
	"github.com/harmix/assistant-api/internal/interfaces/httpserver/requests"
	"github.com/harmix/assistant-api/internal/interfaces/httpserver/responses"
	"github.com/harmix/assistant-api/internal/utils/apperrors"
)

// AuthHandler exposes registration, login, refresh and profile endpoints.
type AuthHandler struct {
	users *user.Service
	log   zerolog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(users *user.Service, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		users: users,
		log:   log.With().Str("handler", "auth").Logger(),
	}
}

// Register handles POST /v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req requests.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, apperrors.ErrorTypeValidation, "name, email and password are required")
		return
	}

	pair, err := h.users.Register(c.Request.Context(), req.Email, req.Name, req.Password, req.Company)
	if err != nil {
		responses.HandleError(c, err, "registration failed")
		return
	}

	c.JSON(http.StatusCreated, pair)
}

// Login handles POST /v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req requests.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, apperrors.ErrorTypeValidation, "email and password are required")
		return
	}

	pair, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		responses.HandleError(c, err, "login failed")
		return
	}

	c.JSON(http.StatusOK, pair)
}

// Refresh handles POST /v1/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req requests.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, apperrors.ErrorTypeValidation, "refresh_token is required")
		return
	}

	pair, err := h.users.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		responses.HandleError(c, err, "token refresh failed")
		return
	}

	c.JSON(http.StatusOK, pair)
}

// Me handles GET /v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := middlewares.UserIDFromContext(c)
	if !ok {
		responses.HandleNewError(c, apperrors.ErrorTypeUnauthorized, "authentication required")
		return
	}

	profile, err := h.users.Profile(c.Request.Context(), userID)
	if err != nil {
		responses.HandleError(c, err, "failed to load profile")
		return
	}

	c.JSON(http.StatusOK, responses.FromUser(profile))
}
