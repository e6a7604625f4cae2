package utils

import (
	"github.com/gofiber/fiber/v2"
)

// Message writes the {"message": ...} body used by every non-2xx response
// in the sync protocol, and by the management mutation endpoints on success.
func Message(c *fiber.Ctx, status int, text string) error {
	return c.Status(status).JSON(fiber.Map{
		"message": text,
	})
}

// Unauthorized is the uniform denial response. Missing credentials, a bad
// digest, an inactive account and an insufficient role all look identical to
// the caller so accounts cannot be enumerated.
func Unauthorized(c *fiber.Ctx) error {
	return Message(c, fiber.StatusUnauthorized, "Unauthorized")
}

func BadRequest(c *fiber.Ctx, text string) error {
	return Message(c, fiber.StatusBadRequest, text)
}

func InternalServerError(c *fiber.Ctx, text string) error {
	return Message(c, fiber.StatusInternalServerError, text)
}
