package middleware

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
)

// LoggingMiddleware logs every request with the classified client address.
func LoggingMiddleware(logger *log.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		origin := OriginFrom(c)
		tag := ""
		if origin.Flagged {
			tag = "*"
		}

		logger.Printf("[%s]%s %s %s %d %v",
			origin.ClientIP,
			tag,
			c.Method(),
			c.Path(),
			c.Response().StatusCode(),
			time.Since(start),
		)

		return err
	}
}
