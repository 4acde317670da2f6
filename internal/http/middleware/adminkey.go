package middleware

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// AdminKeyAuth middleware validates the operator key for admin endpoints.
// Expects: X-Admin-Key: <key>
func AdminKeyAuth(adminKey string, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if adminKey == "" {
			logger.Warn("Admin API key not configured, rejecting admin request",
				slog.String("path", c.Path()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Admin API not configured",
			})
		}

		providedKey := c.Get("X-Admin-Key")
		if providedKey == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing X-Admin-Key header",
			})
		}

		// Constant-time comparison to prevent timing attacks
		if !secureCompare(providedKey, adminKey) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid admin key",
			})
		}

		return c.Next()
	}
}

// secureCompare performs constant-time string comparison
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	var result byte
	for i := 0; i < len(a); i++ {
		result |= a[i] ^ b[i]
	}
	return result == 0
}
