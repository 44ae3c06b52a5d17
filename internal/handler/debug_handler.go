package handler

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"github.com/molunlade/contact-api/internal/utils"
)

// DebugEcho reflects the request back to the caller. The front end uses it to
// verify that POST bodies and CORS preflights survive the deployment.
func DebugEcho() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body any
		if raw := c.Body(); len(raw) > 0 {
			if err := json.Unmarshal(raw, &body); err != nil {
				body = string(raw)
			}
		}

		return utils.SendOK(c, fiber.Map{
			"origin": c.Get(fiber.HeaderOrigin),
			"body":   body,
		})
	}
}
