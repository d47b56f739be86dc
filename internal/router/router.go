package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/agenda-api/internal/config"
	"github.com/noah-isme/agenda-api/internal/handler"
	"github.com/noah-isme/agenda-api/internal/middleware"
	"github.com/noah-isme/agenda-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	VenueHandler        *handler.VenueHandler
	EventHandler        *handler.EventHandler
	NotificationHandler *handler.NotificationHandler
	SpeakerHandler      *handler.SpeakerHandler
	AuditHandler        *handler.AuditHandler
	SeedHandler         *handler.SeedHandler
	HealthChecks        []handler.DependencyCheck
	JWTMiddleware       fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.NewHealthHandler(cfg, deps.HealthChecks...).Check)
	api.Get("/metrics", observability.MetricsHandler())

	// Seeding authenticates with its own token header.
	if deps.SeedHandler != nil {
		deps.SeedHandler.Register(api.Group("/seed"))
	}

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	// Routes registered above stay public; everything below requires a token.
	secured := api.Group("", jwtMiddleware)
	organizers := middleware.RequireRole(middleware.AuthRoleOrganizer, middleware.AuthRoleAdmin)
	speakers := middleware.RequireRole(middleware.AuthRoleSpeaker, middleware.AuthRoleAdmin)

	if deps.VenueHandler != nil {
		secured.Use("/companies", organizers)
		secured.Use("/places", organizers)
		deps.VenueHandler.Register(secured)
	}

	if deps.EventHandler != nil {
		deps.EventHandler.Register(
			secured.Group("/events", organizers),
			secured.Group("/activities", organizers),
		)
	}

	// Any authenticated user reads their own inbox; the services scope by recipient.
	if deps.NotificationHandler != nil {
		limiter := middleware.RateLimit("notifications", cfg.RateLimitMax, cfg.RateLimitWindow)
		deps.NotificationHandler.Register(secured.Group("/notifications", limiter))
	}

	if deps.SpeakerHandler != nil {
		limiter := middleware.RateLimit("speaker", cfg.RateLimitMax, cfg.RateLimitWindow)
		deps.SpeakerHandler.Register(secured.Group("/speaker", speakers, limiter))
	}

	if deps.AuditHandler != nil {
		secured.Get("/audit-logs", middleware.WithAuth(deps.AuditHandler.List, middleware.AuthOptions{Role: middleware.AuthRoleAdmin}))
	}
}
