package router

import (
	"github.com/gofiber/fiber/v3"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/tubelens/tubelens-go/internal/handler"
	"github.com/tubelens/tubelens-go/internal/middleware"
)

// Handlers holds all handler instances needed by the router.
type Handlers struct {
	Audit   *handler.AuditHandler
	Channel *handler.ChannelHandler
	Stats   *handler.StatsHandler
	Health  *handler.HealthHandler
}

// Setup configures the middleware stack and all API routes on the given Fiber app.
func Setup(app *fiber.App, h *Handlers, corsOrigins string) {
	// Middleware stack (order matters)
	app.Use(recoverer.New())
	app.Use(middleware.NewRequestLogger())
	app.Use(middleware.NewCORS(corsOrigins))
	app.Use(handler.MetricsMiddleware())

	// Health checks (before API group)
	app.Get("/health/live", h.Health.Live)
	app.Get("/health/ready", h.Health.Ready)

	// Prometheus metrics
	app.Get("/metrics", handler.MetricsHandler())

	// Rate limiters, per route class
	createLimit := middleware.NewAuditCreateRateLimiter()
	readLimit := middleware.NewAuditReadRateLimiter()
	exportLimit := middleware.NewExportRateLimiter()
	statsLimit := middleware.NewStatsRateLimiter()

	// API routes
	api := app.Group("/api")

	// Audit routes
	api.Post("/audits", h.Audit.Create, createLimit.Handler())
	api.Get("/audits", h.Audit.List, readLimit.Handler())
	api.Get("/audits/:auditId", h.Audit.Get, readLimit.Handler())
	api.Get("/audits/:auditId/sections", h.Audit.Sections, readLimit.Handler())
	api.Get("/audits/:auditId/export", h.Audit.Export, exportLimit.Handler())
	api.Delete("/audits/:auditId", h.Audit.Delete, createLimit.Handler())

	// Channel routes
	api.Get("/channels/:channelId", h.Channel.Get, readLimit.Handler())

	// Stats routes
	api.Get("/stats", h.Stats.GetStats, statsLimit.Handler())
}
