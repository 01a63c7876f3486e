//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/harmix/assistant-api/internal/config"
	"github.com/harmix/assistant-api/internal/domain/agent"
	"github.com/harmix/assistant-api/internal/domain/conversation"
	"github.com/harmix/assistant-api/internal/domain/integration"
	"github.com/harmix/assistant-api/internal/domain/mcp"
	"github.com/harmix/assistant-api/internal/domain/user"
	"github.com/harmix/assistant-api/internal/domain/workflow"
	"github.com/harmix/assistant-api/internal/infrastructure/agentcli"
	"github.com/harmix/assistant-api/internal/infrastructure/auth"
	"github.com/harmix/assistant-api/internal/infrastructure/composio"
	"github.com/harmix/assistant-api/internal/infrastructure/database"
	"github.com/harmix/assistant-api/internal/infrastructure/logger"
	"github.com/harmix/assistant-api/internal/infrastructure/relay"
	conversationrepo "github.com/harmix/assistant-api/internal/infrastructure/repository/conversation"
	integrationrepo "github.com/harmix/assistant-api/internal/infrastructure/repository/integration"
	userrepo "github.com/harmix/assistant-api/internal/infrastructure/repository/user"
	workflowrepo "github.com/harmix/assistant-api/internal/infrastructure/repository/workflow"
	"github.com/harmix/assistant-api/internal/infrastructure/scheduler"
	"github.com/harmix/assistant-api/internal/interfaces/httpserver"
	"github.com/harmix/assistant-api/internal/interfaces/httpserver/handlers"
)

var repositorySet = wire.NewSet(
	userrepo.NewRepository,
	wire.Bind(new(user.Repository), new(*userrepo.Repository)),
	conversationrepo.NewRepository,
	wire.Bind(new(conversation.Repository), new(*conversationrepo.Repository)),
	conversationrepo.NewMessageRepository,
	wire.Bind(new(conversation.MessageRepository), new(*conversationrepo.MessageRepository)),
	workflowrepo.NewRepository,
	wire.Bind(new(workflow.Repository), new(*workflowrepo.Repository)),
	workflowrepo.NewRunRepository,
	wire.Bind(new(workflow.RunRepository), new(*workflowrepo.RunRepository)),
	integrationrepo.NewRepository,
	wire.Bind(new(integration.Repository), new(*integrationrepo.Repository)),
)

var serviceSet = wire.NewSet(
	auth.NewTokenManager,
	user.NewService,
	agentcli.NewCLIRunner,
	wire.Bind(new(agent.Runner), new(*agentcli.CLIRunner)),
	conversation.NewService,
	wire.Bind(new(workflow.TurnSender), new(*conversation.Service)),
	workflow.NewService,
	composio.NewClient,
	wire.Bind(new(integration.Provider), new(*composio.Client)),
	wire.Bind(new(mcp.SessionProvider), new(*composio.Client)),
	newIntegrationService,
	newMCPService,
	relay.New,
	scheduler.NewScheduler,
)

// BuildApplication demonstrates how to assemble the assistant service with Wire.
func BuildApplication(ctx context.Context) (*Application, error) {
	wire.Build(
		config.Load,
		logger.New,
		newGormDB,
		repositorySet,
		serviceSet,
		newHandlerProvider,
		httpserver.New,
		NewApplication,
	)
	return nil, nil
}

func newGormDB(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*gorm.DB, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(ctx, db, log); err != nil {
		return nil, err
	}
	return db, nil
}

func newIntegrationService(
	integrations integration.Repository,
	users user.Repository,
	provider integration.Provider,
	cfg *config.Config,
	log zerolog.Logger,
) *integration.Service {
	return integration.NewService(integrations, users, provider, cfg.APIURL, log)
}

func newMCPService(
	integrations *integration.Service,
	provider mcp.SessionProvider,
	cfg *config.Config,
	log zerolog.Logger,
) *mcp.Service {
	return mcp.NewService(integrations, provider, cfg.APIURL, log)
}

func newHandlerProvider(
	users *user.Service,
	conversations *conversation.Service,
	workflows *workflow.Service,
	integrations *integration.Service,
	mcpService *mcp.Service,
	turnRelay *relay.Relay,
	cfg *config.Config,
	log zerolog.Logger,
) *handlers.Provider {
	return handlers.NewProvider(users, conversations, workflows, integrations, mcpService, turnRelay, cfg.AgentAPI, log)
}
