package utils

import (
	"github.com/gofiber/fiber/v2"

	"github.com/molunlade/contact-api/internal/dto"
)

// Every response carries an "ok" boolean; success payloads merge extra fields into
// the same object, failures carry either "error" or a structured "errors" list.

// SendOK sends a success envelope with the provided extra fields.
func SendOK(c *fiber.Ctx, fields fiber.Map) error {
	payload := fiber.Map{"ok": true}
	for key, value := range fields {
		payload[key] = value
	}

	return c.Status(fiber.StatusOK).JSON(payload)
}

// SendError sends a failure envelope with a human-readable message.
func SendError(c *fiber.Ctx, status int, message string) error {
	if message == "" {
		message = "Server error"
	}

	return c.Status(status).JSON(fiber.Map{
		"ok":    false,
		"error": message,
	})
}

// SendValidationErrors sends the per-field error list for a 400 response.
func SendValidationErrors(c *fiber.Ctx, errs []dto.FieldError) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"ok":     false,
		"errors": errs,
	})
}
