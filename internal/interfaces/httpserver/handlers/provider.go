package handlers

import (
	"github.com/rs/zerolog"

	"github.com/harmix/assistant-api/internal/domain/conversation"
	"github.com/harmix/assistant-api/internal/domain/integration"
	"github.com/harmix/assistant-api/internal/domain/mcp"
	"github.com/harmix/assistant-api/internal/domain/user"
	"github.com/harmix/assistant-api/internal/domain/workflow"
	"github.com/harmix/assistant-api/internal/infrastructure/relay"
)

// Provider wires all HTTP handlers for dependency injection.
type Provider struct {
	Auth         *AuthHandler
	Conversation *ConversationHandler
	Message      *MessageHandler
	Workflow     *WorkflowHandler
	Integration  *IntegrationHandler
	MCP          *MCPHandler
}

// NewProvider constructs the handler provider with domain services.
func NewProvider(
	users *user.Service,
	conversations *conversation.Service,
	workflows *workflow.Service,
	integrations *integration.Service,
	mcpService *mcp.Service,
	rel *relay.Relay,
	agentEnabled bool,
	log zerolog.Logger,
) *Provider {
	return &Provider{
		Auth:         NewAuthHandler(users, log),
		Conversation: NewConversationHandler(conversations, log),
		Message:      NewMessageHandler(conversations, users, rel, agentEnabled, log),
		Workflow:     NewWorkflowHandler(workflows, log),
		Integration:  NewIntegrationHandler(integrations, log),
		MCP:          NewMCPHandler(mcpService, log),
	}
}
