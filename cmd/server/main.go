package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/forumkit/trustcore/internal/config"
	"github.com/forumkit/trustcore/internal/database"
	"github.com/forumkit/trustcore/internal/handlers"
	"github.com/forumkit/trustcore/internal/logging"
	"github.com/forumkit/trustcore/internal/middleware"
	"github.com/forumkit/trustcore/internal/routes"
	"github.com/forumkit/trustcore/internal/rules"
	"github.com/forumkit/trustcore/internal/services"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	// Structured logging (JSON to stdout)
	logging.Setup()

	cfg := config.Load()

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}
	if cfg.ServiceKeyHash == "" {
		slog.Error("SERVICE_KEY_HASH environment variable is required")
		os.Exit(1)
	}

	// Rules registry (tier table, badge catalog, points, weights)
	ruleSet, err := rules.Load(cfg.RulesConfigPath)
	if err != nil {
		slog.Error("failed to load rules registry", "path", cfg.RulesConfigPath, "error", err)
		os.Exit(1)
	}
	slog.Info("rules registry loaded",
		"tiers", len(ruleSet.Tiers),
		"badges", len(ruleSet.Badges),
		"auto_publish_level", ruleSet.AutoPublishLevel)

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}

	if err := database.Migrate(); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(database.DB)
	slog.SetDefault(slog.New(logging.NewTeeHandler(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		pgLogHandler,
	)))

	// Log cleanup (90-day retention)
	cleanupDone := make(chan struct{})
	logging.StartCleanup(database.DB, cleanupDone)

	// Outbound notifications
	var notifier services.Notifier = services.NoopNotifier{}
	if cfg.NotifyWebhookURL != "" {
		notifier = services.NewWebhookNotifier(cfg.NotifyWebhookURL)
	} else {
		slog.Warn("NOTIFY_WEBHOOK_URL not set, outbound notifications disabled")
	}

	// Engines
	trustService := services.NewTrustService(database.DB, ruleSet, notifier)
	gamificationService := services.NewGamificationService(database.DB, ruleSet, notifier)
	reviewService := services.NewReviewService(database.DB, ruleSet, trustService, gamificationService, notifier)
	orchestrator := services.NewOrchestrator(database.DB, reviewService, trustService, gamificationService,
		cfg.EventMaxAttempts, cfg.EventBackoffBase)

	// Seed the badge catalog
	if err := gamificationService.SeedCatalog(); err != nil {
		slog.Error("badge catalog seeding failed", "error", err)
		os.Exit(1)
	}
	slog.Info("badge catalog seeded", "badges", len(ruleSet.Badges))

	// Review queue age escalation
	escalationDone := make(chan struct{})
	reviewService.StartEscalation(cfg.QueueAgeInterval, escalationDone)

	// Handlers
	eventHandler := handlers.NewEventHandler(orchestrator)
	userHandler := handlers.NewUserHandler(trustService, gamificationService)
	reviewHandler := handlers.NewReviewHandler(reviewService)
	healthHandler := handlers.NewHealthHandler(ruleSet)

	// Sentry error tracking
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              dsn,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      os.Getenv("APP_ENV"),
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))

	routes.Setup(app, cfg, eventHandler, userHandler, reviewHandler, healthHandler)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	close(cleanupDone)
	close(escalationDone)
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := database.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
