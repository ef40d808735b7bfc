package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-engine/internal/api/http"
	"github.com/spec-kit/helpdesk-engine/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-engine/internal/config"
	"github.com/spec-kit/helpdesk-engine/internal/events"
	"github.com/spec-kit/helpdesk-engine/internal/observability"
	"github.com/spec-kit/helpdesk-engine/internal/persistence"
	"github.com/spec-kit/helpdesk-engine/internal/repository"
	"github.com/spec-kit/helpdesk-engine/internal/service"
	"github.com/spec-kit/helpdesk-engine/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	agentRepo := repository.NewAgentRepository(pool)
	policyRepo := repository.NewCachedSlaPolicyRepository(
		repository.NewSlaPolicyRepository(pool), redis.Client, logger)
	workflowRepo := repository.NewWorkflowRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()

	notifications := service.NewNotificationService(dispatcher, logger, cfg.Notification)

	slaService := service.NewSlaService(policyRepo, ticketRepo, logger, cfg.Sla)
	if err := slaService.SeedDefaultPolicies(ctx); err != nil {
		logger.Fatal("failed to seed sla policies", zap.Error(err))
	}

	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		TicketRepo: ticketRepo,
		AgentRepo:  agentRepo,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	workflowService := service.NewWorkflowService(service.WorkflowDependencies{
		WorkflowRepo: workflowRepo,
		TicketRepo:   ticketRepo,
		Email:        notifications,
		Notifier:     notifications,
		Logger:       logger,
	})

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: ticketRepo,
		AgentRepo:  agentRepo,
		PolicyRepo: policyRepo,
		Sla:        slaService,
		Assignment: assignmentService,
		Dispatcher: dispatcher,
		Email:      notifications,
		Logger:     logger,
	})
	workflowService.SetTicketActions(ticketService)

	slaMonitor := service.NewSlaMonitor(service.SlaMonitorDependencies{
		Sla:        slaService,
		TicketRepo: ticketRepo,
		PolicyRepo: policyRepo,
		Dispatcher: dispatcher,
		Email:      notifications,
		Logger:     logger,
	})

	worker.RegisterWorkflowHandlers(dispatcher, workflowService)
	worker.StartNotificationWorker(notifications)

	sweeper, err := worker.StartSlaSweep(cfg.Sla.SweepSchedule, slaMonitor, logger)
	if err != nil {
		logger.Fatal("failed to schedule sla sweep", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:    handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Tickets:   handlers.NewTicketsHandler(ticketService, assignmentService, slaService),
		Agents:    handlers.NewAgentsHandler(agentRepo, ticketRepo),
		Sla:       handlers.NewSlaHandler(slaService, slaMonitor),
		Workflows: handlers.NewWorkflowsHandler(workflowService),
	})

	metricsServer := &http.Server{
		Addr:    cfg.App.MetricsAddr,
		Handler: promhttp.HandlerFor(observability.Registry, promhttp.HandlerOpts{}),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics listen", zap.Error(err))
		}
	}()

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	sweepCtx := sweeper.Stop()
	<-sweepCtx.Done()
	_ = metricsServer.Shutdown(context.Background())
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
