package main

import (
	"errors"
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

	"github.com/studyhall/studyhall-backend/internal/billing"
	"github.com/studyhall/studyhall-backend/internal/config"
	"github.com/studyhall/studyhall-backend/internal/database"
	"github.com/studyhall/studyhall-backend/internal/entitlement"
	"github.com/studyhall/studyhall-backend/internal/features"
	"github.com/studyhall/studyhall-backend/internal/handlers"
	"github.com/studyhall/studyhall-backend/internal/logging"
	"github.com/studyhall/studyhall-backend/internal/middleware"
	"github.com/studyhall/studyhall-backend/internal/modules"
	"github.com/studyhall/studyhall-backend/internal/modules/dashboard"
	"github.com/studyhall/studyhall-backend/internal/modules/lessons"
	"github.com/studyhall/studyhall-backend/internal/modules/practice"
	"github.com/studyhall/studyhall-backend/internal/modules/tutor"
	"github.com/studyhall/studyhall-backend/internal/modules/videos"
	"github.com/studyhall/studyhall-backend/internal/routes"
	"github.com/studyhall/studyhall-backend/internal/services"
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

	// Feature limit table. Falls back to the built-in defaults when no
	// override file is present.
	limits, err := features.LoadFromFile(cfg.FeaturesConfigPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Error("failed to load feature limits", "path", cfg.FeaturesConfigPath, "error", err)
			os.Exit(1)
		}
		limits = features.Default()
		slog.Info("feature limits file not found, using defaults", "path", cfg.FeaturesConfigPath)
	} else {
		slog.Info("feature limits loaded", "path", cfg.FeaturesConfigPath, "features", len(limits.All()))
	}

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}

	// Migrate shared models
	if err := database.MigrateShared(); err != nil {
		slog.Error("shared migration failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(database.DB)
	slog.SetDefault(slog.New(logging.NewMultiHandler(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		pgLogHandler,
	)))

	// Log cleanup (30-day retention)
	cleanupDone := make(chan struct{})
	logging.StartCleanup(database.DB, cleanupDone)

	// Entitlement wiring: store -> caches -> coordinator -> reconciler -> gate
	store := entitlement.NewGormStore(database.DB, cfg.StoreTimeout)
	resolver, err := entitlement.NewResolver(store, cfg.TierCacheTTL, cfg.SubscriptionCacheTTL)
	if err != nil {
		slog.Error("failed to build entitlement resolver", "error", err)
		os.Exit(1)
	}
	coordinator := resolver.Coordinator()
	reconciler := entitlement.NewReconciler(store, store, coordinator)
	gate := entitlement.NewGate(resolver, store, limits)

	checkoutClient := billing.NewCheckoutClient(cfg)

	// Services
	authService := services.NewAuthService(database.DB, cfg)

	// Content modules
	mods := []modules.Module{
		lessons.New(),
		practice.New(),
		videos.New(),
		tutor.New(),
		dashboard.New(),
	}
	for _, m := range mods {
		if modelList := m.Models(); len(modelList) > 0 {
			if err := database.MigrateModels(modelList); err != nil {
				slog.Error("module migration failed", "module", m.ID(), "error", err)
				os.Exit(1)
			}
			slog.Info("module migrated", "module", m.ID(), "models", len(modelList))
		}
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	healthHandler := handlers.NewHealthHandler()
	webhookHandler := handlers.NewWebhookHandler(cfg.StripeWebhookSecret, checkoutClient, reconciler)
	billingHandler := handlers.NewBillingHandler(checkoutClient)
	entitlementHandler := handlers.NewEntitlementHandler(resolver, reconciler, coordinator, limits)

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
		BodyLimit:    4 * 1024 * 1024,
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
	deps := modules.Deps{DB: database.DB, Cfg: cfg, Gate: gate}
	routes.Setup(app, cfg, database.DB, deps, authHandler, healthHandler, webhookHandler, billingHandler, entitlementHandler, mods)

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
