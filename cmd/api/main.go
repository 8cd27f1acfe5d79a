package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/taskroom/taskroom-go-api/internal/config"
	"github.com/taskroom/taskroom-go-api/internal/database"
	"github.com/taskroom/taskroom-go-api/internal/handler"
	"github.com/taskroom/taskroom-go-api/internal/middleware"
	"github.com/taskroom/taskroom-go-api/internal/models"
	"github.com/taskroom/taskroom-go-api/internal/repository"
	"github.com/taskroom/taskroom-go-api/internal/router"
	"github.com/taskroom/taskroom-go-api/internal/scheduler"
	"github.com/taskroom/taskroom-go-api/internal/service"
	"github.com/taskroom/taskroom-go-api/pkg/objectstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Task{}, &models.TaskAssignment{}, &models.ScheduledNotification{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSUrl)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	defer natsConn.Drain()

	files, err := objectstore.New(context.Background(), objectstore.Config{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		UseSSL:    cfg.MinioUseSSL,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create object store: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	taskRepo := repository.NewTaskRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	userRepo := repository.NewUserRepository(db)

	dispatcher := service.NewNATSDispatcher(natsConn, cfg.NATSSubject, logger)
	schedulingService := service.NewSchedulingService(scheduleRepo, cfg.LeadTimes, logger)
	assignmentService := service.NewAssignmentService(assignmentRepo, taskRepo, userRepo, schedulingService, dispatcher, logger)
	taskService := service.NewTaskService(taskRepo, assignmentRepo, schedulingService, validate, logger)
	solutionService := service.NewSolutionService(assignmentRepo, userRepo, files, dispatcher, logger)
	processingService := service.NewProcessingService(scheduleRepo, assignmentRepo, userRepo, dispatcher, service.ProcessingConfig{
		MaxAttempts:  cfg.MaxDispatchAttempts,
		PastSlack:    cfg.WindowPastSlack,
		FutureSlack:  cfg.WindowFutureSlack,
		RetryHorizon: cfg.RetryHorizon,
	}, logger)
	sweepService := service.NewSweepService(assignmentRepo, dispatcher, cfg.LeadTimes, logger)
	resetTokens := service.NewResetTokenStore(redisClient, cfg.ResetTokenTTL, logger)

	jobs := scheduler.New(logger)
	jobs.Register("notification_processing", cfg.ProcessingInterval, processingService.Run)
	jobs.Register("overdue_sweep", cfg.OverdueSweepInterval, sweepService.RunOverdueSweep)
	jobs.Register("approaching_sweep", cfg.ApproachingSweepInterval, sweepService.RunApproachingSweep)
	jobs.Start(context.Background())

	taskHandler := handler.NewTaskHandler(taskService, schedulingService, validate, logger)
	assignmentHandler := handler.NewAssignmentHandler(assignmentService, validate, logger)
	solutionHandler := handler.NewSolutionHandler(solutionService, validate, logger)
	authHandler := handler.NewAuthHandler(resetTokens, userRepo, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		TaskHandler:       taskHandler,
		AssignmentHandler: assignmentHandler,
		SolutionHandler:   solutionHandler,
		AuthHandler:       authHandler,
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, jobs)
}

func waitForShutdown(app *fiber.App, jobs *scheduler.Scheduler) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	jobs.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
