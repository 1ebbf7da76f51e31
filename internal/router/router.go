package router

import (
	"github.com/gofiber/fiber/v3"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/redstone-squid/Redstone-Squid/internal/handler"
	"github.com/redstone-squid/Redstone-Squid/internal/middleware"
)

// Handlers holds all handler instances needed by the router.
type Handlers struct {
	Health  *handler.HealthHandler
	Record  *handler.RecordHandler
	Session *handler.SessionHandler
	Admin   *handler.AdminHandler
}

// Setup configures the middleware stack and all routes on the given Fiber app.
func Setup(app *fiber.App, h *Handlers, corsOrigins string) {
	// Middleware stack (order matters)
	app.Use(recoverer.New())
	app.Use(middleware.NewRequestLogger())
	app.Use(handler.MetricsMiddleware())
	app.Use(middleware.NewCORS(corsOrigins))

	// Probes and metrics (before the API group)
	app.Get("/health/live", h.Health.Live)
	app.Get("/health/ready", h.Health.Ready)
	app.Get("/metrics", handler.MetricsHandler())

	// API routes
	api := app.Group("/api")
	api.Get("/records", h.Record.Get, middleware.NewLookupRateLimiter().Handler())
	api.Get("/sessions/:sessionId", h.Session.Get, middleware.NewSessionRateLimiter().Handler())

	// Admin routes
	admin := app.Group("/admin")
	admin.Post("/rebuild", h.Admin.Rebuild, middleware.NewRebuildRateLimiter().Handler())
}
