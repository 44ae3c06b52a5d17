package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/molunlade/contact-api/internal/config"
	"github.com/molunlade/contact-api/internal/utils"
)

// HealthCheck reports that the API is up.
func HealthCheck(cfg config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return utils.SendOK(c, fiber.Map{
			"message":     "Contact API is running",
			"service":     cfg.AppName,
			"environment": cfg.AppEnv,
			"timestamp":   time.Now().UTC(),
		})
	}
}
