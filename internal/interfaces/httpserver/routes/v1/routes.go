package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/harmix/assistant-api/internal/interfaces/httpserver/handlers"
)

// Routes encapsulates versioned route registration.
type Routes struct {
	handlers *handlers.Provider
}

// NewRoutes builds the v1 route registrar.
func NewRoutes(handlerProvider *handlers.Provider) *Routes {
	return &Routes{
		handlers: handlerProvider,
	}
}

// RegisterPublic attaches the unauthenticated v1 routes.
func (r *Routes) RegisterPublic(engine *gin.Engine) {
	group := engine.Group("/v1")
	group.POST("/auth/register", r.handlers.Auth.Register)
	group.POST("/auth/login", r.handlers.Auth.Login)
	group.POST("/auth/refresh", r.handlers.Auth.Refresh)
}

// RegisterProtected attaches the authenticated v1 routes to a group that
// already carries the auth middleware.
func (r *Routes) RegisterProtected(group gin.IRoutes, messageGate gin.HandlerFunc) {
	group.GET("/v1/auth/me", r.handlers.Auth.Me)

	group.GET("/v1/conversations", r.handlers.Conversation.List)
	group.GET("/v1/conversations/:id", r.handlers.Conversation.Get)
	group.PATCH("/v1/conversations/:id", r.handlers.Conversation.Update)
	group.DELETE("/v1/conversations/:id", r.handlers.Conversation.Delete)

	group.GET("/v1/messages", r.handlers.Conversation.Messages)
	if messageGate != nil {
		group.POST("/v1/messages", messageGate, r.handlers.Message.Send)
	} else {
		group.POST("/v1/messages", r.handlers.Message.Send)
	}

	group.GET("/v1/workflows", r.handlers.Workflow.List)
	group.POST("/v1/workflows", r.handlers.Workflow.Create)
	group.GET("/v1/workflows/:id", r.handlers.Workflow.Get)
	group.PATCH("/v1/workflows/:id", r.handlers.Workflow.Update)
	group.DELETE("/v1/workflows/:id", r.handlers.Workflow.Delete)
	group.POST("/v1/workflows/:id/run", r.handlers.Workflow.Run)
	group.GET("/v1/workflows/:id/runs", r.handlers.Workflow.Runs)

	group.GET("/v1/integrations", r.handlers.Integration.List)
	group.POST("/v1/integrations/:slug/connect", r.handlers.Integration.Connect)
	group.GET("/v1/integrations/oauth-callback", r.handlers.Integration.OAuthCallback)
	group.POST("/v1/integrations/:slug/disconnect", r.handlers.Integration.Disconnect)

	group.GET("/v1/mcp", r.handlers.MCP.Config)
	group.POST("/v1/mcp/router", r.handlers.MCP.Route)
	group.DELETE("/v1/mcp/session", r.handlers.MCP.ClearSession)
}
