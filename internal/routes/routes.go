package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"gorm.io/gorm"

	"github.com/studyhall/studyhall-backend/internal/config"
	"github.com/studyhall/studyhall-backend/internal/handlers"
	"github.com/studyhall/studyhall-backend/internal/middleware"
	"github.com/studyhall/studyhall-backend/internal/modules"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	db *gorm.DB,
	deps modules.Deps,
	authHandler *handlers.AuthHandler,
	healthHandler *handlers.HealthHandler,
	webhookHandler *handlers.WebhookHandler,
	billingHandler *handlers.BillingHandler,
	entitlementHandler *handlers.EntitlementHandler,
	mods []modules.Module,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	// Health
	api.Get("/health", healthHandler.Check)

	// Auth — public, with a stricter rate limit: 10 req/min per IP
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)

	// Protected auth routes — JWT applied per route so public routes stay
	// unaffected
	api.Post("/auth/logout", middleware.JWTProtected(cfg), authHandler.Logout)
	api.Delete("/auth/account", middleware.JWTProtected(cfg), authHandler.DeleteAccount)

	// Webhooks — Stripe signature auth, no JWT
	webhooks := api.Group("/webhooks")
	webhooks.Post("/stripe", webhookHandler.HandleStripe)

	// Billing and entitlement self-service (protected)
	api.Post("/billing/checkout", middleware.JWTProtected(cfg), billingHandler.Checkout)
	api.Get("/me/entitlement", middleware.JWTProtected(cfg), entitlementHandler.Me)

	// Admin entitlement management (protected + admin required)
	admin := api.Group("/admin", middleware.JWTProtected(cfg), middleware.AdminRequired(db, cfg))
	admin.Put("/entitlements/:user_id", entitlementHandler.AdminOverride)
	admin.Post("/cache/invalidate", entitlementHandler.Invalidate)
	admin.Get("/features", entitlementHandler.ListFeatures)
	admin.Put("/features/:feature", entitlementHandler.SetFeatureLimits)

	// Content module routes under a protected group
	protected := api.Group("/p", middleware.JWTProtected(cfg))
	for _, m := range mods {
		m.RegisterRoutes(protected, deps)
		if am, ok := m.(modules.AdminModule); ok {
			am.RegisterAdminRoutes(admin, deps)
		}
	}
}
