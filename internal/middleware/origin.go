package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/molunlade/contact-api/internal/config"
	"github.com/molunlade/contact-api/internal/utils"
)

const (
	allowedMethods = "GET,POST,OPTIONS"
	allowedHeaders = "Content-Type,x-admin-token"
)

// Decision is the outcome of evaluating a request origin against the policy.
type Decision struct {
	Allow        bool
	EchoedOrigin string
}

// DecideOrigin evaluates the CORS policy for a request origin.
//
// Requests without an Origin header, or with the literal "null" origin sent for
// file:// pages, are always allowed and answered with a wildcard so non-browser
// callers and local testing keep working. Development mode echoes any origin back,
// which is what credentialed requests and LAN testing need. Production only allows
// an exact match against the configured origin, or any origin when the configured
// value is the literal wildcard.
func DecideOrigin(origin, mode, allowed string) Decision {
	if origin == "" || origin == "null" {
		return Decision{Allow: true, EchoedOrigin: "*"}
	}

	if mode != config.EnvProduction {
		return Decision{Allow: true, EchoedOrigin: origin}
	}

	if allowed == "*" || allowed == origin {
		return Decision{Allow: true, EchoedOrigin: origin}
	}

	return Decision{}
}

// OriginPolicy enforces the CORS policy for every request and answers OPTIONS
// preflights directly. It must be registered before the rate limiter so preflights
// are never throttled, and the decision is the same for the preflight and the
// actual request of a given origin.
func OriginPolicy(cfg config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		decision := DecideOrigin(c.Get(fiber.HeaderOrigin), cfg.AppEnv, cfg.AllowedOrigin)

		if !decision.Allow {
			return utils.SendError(c, fiber.StatusForbidden, "Origin not allowed")
		}

		c.Set(fiber.HeaderAccessControlAllowOrigin, decision.EchoedOrigin)
		c.Set(fiber.HeaderAccessControlAllowMethods, allowedMethods)
		c.Set(fiber.HeaderAccessControlAllowHeaders, allowedHeaders)

		if c.Method() == fiber.MethodOptions {
			return c.SendStatus(fiber.StatusNoContent)
		}

		return c.Next()
	}
}
