package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/harmix/assistant-api/internal/domain/mcp"
	"github.com/harmix/assistant-api/internal/interfaces/httpserver/middlewares"
	"github.com/harmix/assistant-api/internal/interfaces/httpserver/responses"
	"github.com/harmix/assistant-api/internal/utils/apperrors"
)

// MCPHandler exposes the tool-router proxy surface.
type MCPHandler struct {
	mcp *mcp.Service
	log zerolog.Logger
}

// NewMCPHandler constructs the handler.
func NewMCPHandler(service *mcp.Service, log zerolog.Logger) *MCPHandler {
	return &MCPHandler{
		mcp: service,
		log: log.With().Str("handler", "mcp").Logger(),
	}
}

// Config handles GET /v1/mcp
func (h *MCPHandler) Config(c *gin.Context) {
	token := middlewares.BearerToken(c)
	c.JSON(http.StatusOK, h.mcp.Config(token))
}

// Route handles POST /v1/mcp/router
func (h *MCPHandler) Route(c *gin.Context) {
	userID, _ := middlewares.UserIDFromContext(c)

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		responses.HandleNewError(c, apperrors.ErrorTypeValidation, "failed to read request body")
		return
	}

	result := h.mcp.Route(c.Request.Context(), userID, body, c.GetHeader("Accept"))
	c.Data(result.Status, "application/json", result.Body)
}

// ClearSession handles DELETE /v1/mcp/session
func (h *MCPHandler) ClearSession(c *gin.Context) {
	userID, _ := middlewares.UserIDFromContext(c)

	if h.mcp.ClearSession(userID) {
		c.JSON(http.StatusOK, gin.H{"cleared": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": false})
}
