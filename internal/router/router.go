package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/molunlade/contact-api/internal/config"
	"github.com/molunlade/contact-api/internal/handler"
	"github.com/molunlade/contact-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	SubmissionHandler *handler.SubmissionHandler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api")
	if deps.SubmissionHandler != nil {
		deps.SubmissionHandler.Register(api)
	}
	api.Post("/_debug/echo", handler.DebugEcho())
}
