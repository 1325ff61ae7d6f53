package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/ilivehere/backend/internal/audit"
	"github.com/ilivehere/backend/internal/config"
	"github.com/ilivehere/backend/internal/database"
	"github.com/ilivehere/backend/internal/handlers"
	"github.com/ilivehere/backend/internal/logging"
	"github.com/ilivehere/backend/internal/middleware"
	"github.com/ilivehere/backend/internal/routes"
	"github.com/ilivehere/backend/internal/services"
	"github.com/ilivehere/backend/internal/storage"
)

func main() {
	env := os.Getenv("APP_ENV")

	// Structured logging (JSON to stdout)
	logging.Setup(env)

	cfg := config.Load()

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	areas, err := database.LoadAreas(cfg.AreasConfigPath)
	if err != nil {
		slog.Error("failed to load areas", "path", cfg.AreasConfigPath, "error", err)
		os.Exit(1)
	}

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(database.DB); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// Seed data
	if err := database.SeedModerateStates(database.DB); err != nil {
		slog.Error("seeding moderate states failed", "error", err)
		os.Exit(1)
	}
	if err := database.SeedAreas(database.DB, areas); err != nil {
		slog.Error("seeding areas failed", "error", err)
		os.Exit(1)
	}
	if err := database.VerifyModerateStates(database.DB); err != nil {
		slog.Error("moderate states are not configured", "error", err)
		os.Exit(1)
	}
	slog.Info("seed data loaded", "areas", len(areas))

	// Database log handler (ERROR+ async batch)
	pgLogHandler := logging.AttachDatabase(env, database.DB)

	// Log cleanup (30-day retention)
	cleanupDone := make(chan struct{})
	logging.StartCleanup(database.DB, cleanupDone)

	// Picture storage
	var pictures storage.PictureStore = storage.DisabledStore{}
	if cfg.PicturesEnabled() {
		s3Store, err := storage.NewS3Store(context.Background(), cfg)
		if err != nil {
			slog.Error("picture storage init failed", "error", err)
			os.Exit(1)
		}
		pictures = s3Store
	} else {
		slog.Warn("picture storage not configured, uploads are disabled")
	}

	// Services
	authService := services.NewAuthService(database.DB, cfg)
	recorder := audit.NewRecorder(database.DB)
	storyService := services.NewStoryService(database.DB, recorder, pictures, time.Now, services.StoryServiceOptions{
		Terminal:        cfg.ModerationTerminal,
		MaxPictureBytes: cfg.PictureMaxBytes,
	})
	eventService := services.NewEventService(database.DB, recorder, time.Now, cfg.ModerationTerminal)

	// Handlers
	storyHandler := handlers.NewStoryHandler(storyService)
	h := routes.Handlers{
		Auth:       handlers.NewAuthHandler(authService),
		Health:     handlers.NewHealthHandler(database.DB),
		Story:      storyHandler,
		Event:      handlers.NewEventHandler(eventService),
		Moderation: handlers.NewModerationHandler(storyHandler),
	}

	// Sentry error tracking
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              dsn,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      env,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app; multipart overhead on top of the largest picture
	app := fiber.New(fiber.Config{
		BodyLimit:    cfg.PictureMaxBytes + 64*1024,
		ErrorHandler: customErrorHandler,
	})

	// Sentry middleware
	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	// Routes
	routes.Setup(app, cfg, authService, h)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port, "moderation_terminal", cfg.ModerationTerminal)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	close(cleanupDone)
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	// Close database connections
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

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
