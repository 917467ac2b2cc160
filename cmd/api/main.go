package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/ict-helpdesk/servicedesk/internal/api/http"
	"github.com/ict-helpdesk/servicedesk/internal/api/http/handlers"
	"github.com/ict-helpdesk/servicedesk/internal/auth"
	"github.com/ict-helpdesk/servicedesk/internal/config"
	"github.com/ict-helpdesk/servicedesk/internal/events"
	"github.com/ict-helpdesk/servicedesk/internal/observability"
	"github.com/ict-helpdesk/servicedesk/internal/persistence"
	"github.com/ict-helpdesk/servicedesk/internal/repository"
	"github.com/ict-helpdesk/servicedesk/internal/service"
	"github.com/ict-helpdesk/servicedesk/internal/storage"
	"github.com/ict-helpdesk/servicedesk/internal/worker"
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

	fileStore, err := storage.NewDiskStore(cfg.Storage.UploadDir)
	if err != nil {
		logger.Fatal("failed to init upload store", zap.Error(err))
	}

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	ticketLogRepo := repository.NewTicketLogRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)
	taskRepo := repository.NewTaskRepository(pool)
	taskProgressRepo := repository.NewTaskProgressRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	uow := repository.NewUnitOfWork(pool)

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	notificationService := service.NewNotificationService(notificationRepo, redis.Client, logger)
	authService := service.NewAuthService(*cfg, userRepo)
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:     ticketRepo,
		LogRepo:        ticketLogRepo,
		AttachmentRepo: attachmentRepo,
		UnitOfWork:     uow,
		Directory:      userRepo,
		Notifier:       notificationService,
		Dispatcher:     dispatcher,
		Logger:         logger,
	})
	taskService := service.NewTaskService(service.TaskDependencies{
		TaskRepo:     taskRepo,
		ProgressRepo: taskProgressRepo,
		UnitOfWork:   uow,
		Directory:    userRepo,
		Notifier:     notificationService,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})

	eventWorker := worker.NewEventWorker(dispatcher, logger, cfg.Notification)
	eventWorker.Start()

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService, fileStore),
		Tasks:          handlers.NewTasksHandler(taskService),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
