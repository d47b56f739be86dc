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
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/agenda-api/internal/config"
	"github.com/noah-isme/agenda-api/internal/database"
	"github.com/noah-isme/agenda-api/internal/handler"
	"github.com/noah-isme/agenda-api/internal/middleware"
	"github.com/noah-isme/agenda-api/internal/repository"
	"github.com/noah-isme/agenda-api/internal/router"
	"github.com/noah-isme/agenda-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("app", cfg.AppName).Logger()

	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelConnect()

	db, err := database.ConnectPostgres(connectCtx, cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
	}, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("%v", err)
	}

	redisClient, err := database.ConnectRedis(connectCtx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	venueRepo := repository.NewVenueRepository(db)
	eventRepo := repository.NewEventRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	venueService := service.NewVenueService(venueRepo, redisClient, cfg.VenueCacheTTL, cfg.StoreTimeout, logger)
	seedService := service.NewSeedService(repository.NewVenueSeeder(db), venueService, validate, cfg.SeedEnabled, cfg.SeedToken, cfg.StoreTimeout, logger)
	scheduleValidator := service.NewScheduleValidator(venueService, logger)
	auditService := service.NewAuditService(auditRepo, validate, logger)
	eventService := service.NewEventService(eventRepo, scheduleValidator, auditService, validate, cfg.StoreTimeout, logger)
	notificationService := service.NewNotificationService(notificationRepo, redisClient, cfg.EventsChannel, natsConn, validate, cfg.StoreTimeout, logger)
	publisher := service.NewBrokerPublisher(redisClient, natsConn, cfg.EventsChannel)
	changeRequestService := service.NewChangeRequestService(
		notificationRepo,
		assignmentRepo,
		eventRepo,
		scheduleValidator,
		notificationService,
		publisher,
		auditService,
		validate,
		cfg.StoreTimeout,
		logger,
	)

	ctx, stopFanout := context.WithCancel(context.Background())
	defer stopFanout()
	notificationService.Start(ctx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	healthChecks := []handler.DependencyCheck{
		{Name: "postgres", Required: true, Probe: database.PostgresProbe(db)},
		{Name: "redis", Required: true, Probe: database.RedisProbe(redisClient)},
	}
	if natsConn != nil {
		healthChecks = append(healthChecks, handler.DependencyCheck{Name: "nats", Probe: database.NATSProbe(natsConn)})
	}

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.CORSOrigins})
	router.Register(app, cfg, router.Dependencies{
		VenueHandler:        handler.NewVenueHandler(venueService, logger),
		EventHandler:        handler.NewEventHandler(eventService, logger),
		NotificationHandler: handler.NewNotificationHandler(notificationService, changeRequestService, logger, cfg.SSEKeepAlive),
		SpeakerHandler:      handler.NewSpeakerHandler(changeRequestService, logger),
		AuditHandler:        handler.NewAuditHandler(auditService, logger),
		SeedHandler:         handler.NewSeedHandler(seedService, logger),
		HealthChecks:        healthChecks,
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
