package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/harmix/assistant-api/internal/domain/integration"
	"github.com/harmix/assistant-api/internal/infrastructure/metrics"
	"github.com/harmix/assistant-api/internal/interfaces/httpserver/middlewares"
	"github.com/harmix/assistant-api/internal/interfaces/httpserver/responses"
)

// IntegrationHandler exposes the OAuth-style integration surface.
type IntegrationHandler struct {
	integrations *integration.Service
	log          zerolog.Logger
}

// NewIntegrationHandler constructs the handler.
func NewIntegrationHandler(integrations *integration.Service, log zerolog.Logger) *IntegrationHandler {
	return &IntegrationHandler{
		integrations: integrations,
		log:          log.With().Str("handler", "integration").Logger(),
	}
}

// List handles GET /v1/integrations
func (h *IntegrationHandler) List(c *gin.Context) {
	userID, _ := middlewares.UserIDFromContext(c)

	active, inactive, err := h.integrations.List(c.Request.Context(), userID)
	if err != nil {
		responses.HandleError(c, err, "failed to list integrations")
		return
	}

	c.JSON(http.StatusOK, responses.IntegrationListResponse{
		Active:   active,
		Inactive: inactive,
	})
}

// Connect handles POST /v1/integrations/:slug/connect
func (h *IntegrationHandler) Connect(c *gin.Context) {
	userID, _ := middlewares.UserIDFromContext(c)
	slug := c.Param("slug")

	result, err := h.integrations.Connect(c.Request.Context(), userID, slug, c.Query("redirect_url"))
	if err != nil {
		metrics.IntegrationRequestsTotal.WithLabelValues("connect", "error").Inc()
		responses.HandleError(c, err, "failed to initiate connection")
		return
	}

	metrics.IntegrationRequestsTotal.WithLabelValues("connect", "ok").Inc()
	c.JSON(http.StatusOK, result)
}

// OAuthCallback handles GET /v1/integrations/oauth-callback
func (h *IntegrationHandler) OAuthCallback(c *gin.Context) {
	userID, _ := middlewares.UserIDFromContext(c)
	slug := c.Query("app")

	result, err := h.integrations.FinalizeCallback(c.Request.Context(), userID, slug)
	if err != nil {
		responses.HandleError(c, err, "failed to finalize connection")
		return
	}

	c.JSON(http.StatusOK, result)
}

// Disconnect handles POST /v1/integrations/:slug/disconnect
func (h *IntegrationHandler) Disconnect(c *gin.Context) {
	userID, _ := middlewares.UserIDFromContext(c)
	slug := c.Param("slug")

	result, err := h.integrations.Disconnect(c.Request.Context(), userID, slug)
	if err != nil {
		metrics.IntegrationRequestsTotal.WithLabelValues("disconnect", "error").Inc()
		responses.HandleError(c, err, "failed to disconnect")
		return
	}

	metrics.IntegrationRequestsTotal.WithLabelValues("disconnect", "ok").Inc()
	c.JSON(http.StatusOK, result)
}
