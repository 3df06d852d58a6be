package router

import (
	"github.com/gofiber/fiber/v3"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/gofiber/fiber/v3/middleware/static"
	"github.com/google/uuid"

	"github.com/mgsgtaprohd-gif/nb-plowed/internal/handler"
	"github.com/mgsgtaprohd-gif/nb-plowed/internal/middleware"
)

// Handlers holds all handler instances needed by the router.
type Handlers struct {
	Vote   *handler.VoteHandler
	Status *handler.StatusHandler
	Health *handler.HealthHandler
}

// Options carries the router settings taken from configuration.
type Options struct {
	CORSOrigins  string
	ProxyHeaders []string
	PublicDir    string
	Limiter      *middleware.RequestLimiter
}

// Setup configures the middleware stack and all routes on the given Fiber app.
func Setup(app *fiber.App, h *Handlers, opts Options) {
	// Middleware stack (order matters)
	app.Use(recoverer.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(middleware.NewRequestLogger(opts.ProxyHeaders))
	app.Use(handler.MetricsMiddleware())
	app.Use(middleware.NewCORS(opts.CORSOrigins))

	app.Get("/health/live", h.Health.Live)
	app.Get("/health/ready", h.Health.Ready)
	app.Get("/metrics", handler.MetricsHandler())

	api := app.Group("/api")
	if opts.Limiter != nil {
		api.Use(opts.Limiter.Handler())
	}

	api.Get("/status", h.Status.GetStatus)
	api.Get("/streets", h.Status.ListStreets)
	api.Post("/vote", h.Vote.Submit)

	// Map page, assets and the streets GeoJSON.
	if opts.PublicDir != "" {
		app.Get("/*", static.New(opts.PublicDir))
	}
}
