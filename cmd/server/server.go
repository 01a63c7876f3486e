package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/harmix/assistant-api/internal/config"
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
	"github.com/harmix/assistant-api/internal/infrastructure/observability"
	"github.com/harmix/assistant-api/internal/infrastructure/relay"
	conversationrepo "github.com/harmix/assistant-api/internal/infrastructure/repository/conversation"
	integrationrepo "github.com/harmix/assistant-api/internal/infrastructure/repository/integration"
	userrepo "github.com/harmix/assistant-api/internal/infrastructure/repository/user"
	workflowrepo "github.com/harmix/assistant-api/internal/infrastructure/repository/workflow"
	"github.com/harmix/assistant-api/internal/infrastructure/scheduler"
	"github.com/harmix/assistant-api/internal/interfaces/httpserver"
	"github.com/harmix/assistant-api/internal/interfaces/httpserver/handlers"
)

// Application ties the long-running pieces together so main stays small.
type Application struct {
	httpServer *httpserver.HTTPServer
	scheduler  *scheduler.Scheduler
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HTTPServer, sched *scheduler.Scheduler, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		scheduler:  sched,
		log:        log,
	}
}

func (a *Application) Start(ctx context.Context) error {
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return a.httpServer.Run(groupCtx)
	})
	if a.scheduler != nil {
		group.Go(func() error {
			return a.scheduler.Run(groupCtx)
		})
	}
	return group.Wait()
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}

	if err := database.AutoMigrate(ctx, db, log); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	userRepository := userrepo.NewRepository(db)
	conversationRepository := conversationrepo.NewRepository(db)
	messageRepository := conversationrepo.NewMessageRepository(db)
	workflowRepository := workflowrepo.NewRepository(db)
	runRepository := workflowrepo.NewRunRepository(db)
	integrationRepository := integrationrepo.NewRepository(db)

	tokens := auth.NewTokenManager(cfg)
	userService := user.NewService(userRepository, tokens, log)

	agentRunner := agentcli.NewCLIRunner(cfg, log)
	conversationService := conversation.NewService(conversationRepository, messageRepository, agentRunner, log)
	workflowService := workflow.NewService(workflowRepository, runRepository, conversationService, log)

	composioClient := composio.NewClient(cfg, log)
	integrationService := integration.NewService(integrationRepository, userRepository, composioClient, cfg.APIURL, log)
	mcpService := mcp.NewService(integrationService, composioClient, cfg.APIURL, log)

	turnRelay := relay.New(log)

	provider := handlers.NewProvider(
		userService,
		conversationService,
		workflowService,
		integrationService,
		mcpService,
		turnRelay,
		cfg.AgentAPI,
		log,
	)

	httpServer := httpserver.New(cfg, log, provider, tokens)

	var sched *scheduler.Scheduler
	if cfg.SchedulerEnabled {
		sched = scheduler.NewScheduler(workflowService, log)
	}

	app := NewApplication(httpServer, sched, log)

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
