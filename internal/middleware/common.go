package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/molunlade/contact-api/internal/config"
	"github.com/molunlade/contact-api/internal/observability"
)

// Register attaches the common middleware pipeline. Order matters: the origin
// policy runs before the rate limiter so OPTIONS preflights are answered first.
func Register(app *fiber.App, cfg config.Config, logger zerolog.Logger, limiterStorage fiber.Storage) {
	app.Use(recover.New())
	app.Use(CorrelationID())
	app.Use(RequestLogger(logger))
	app.Use(OriginPolicy(cfg))
	app.Use("/api", RateLimit(cfg.RateLimitMax, cfg.RateLimitWindow, limiterStorage))
}

// RequestLogger records metrics and a structured log line per request.
func RequestLogger(logger zerolog.Logger) fiber.Handler {
	observability.RegisterMetrics()

	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		duration := time.Since(start)

		route := c.Path()
		if c.Route() != nil && c.Route().Path != "" {
			route = c.Route().Path
		}
		method := c.Method()
		status := c.Response().StatusCode()
		statusLabel := fmt.Sprintf("%d", status)

		observability.APIRequests().WithLabelValues(method, route, statusLabel).Inc()
		observability.APILatency().WithLabelValues(method, route).Observe(duration.Seconds())

		requestLogger := logger.With().
			Str("correlation_id", GetCorrelationID(c)).
			Str("route", route).
			Str("method", method).
			Int("status", status).
			Dur("latency", duration).
			Logger()

		switch {
		case status >= fiber.StatusInternalServerError:
			requestLogger.Error().Msg("request failed")
		case status >= fiber.StatusBadRequest:
			requestLogger.Warn().Msg("request completed with client error")
		default:
			requestLogger.Info().Msg("request completed")
		}

		return err
	}
}
