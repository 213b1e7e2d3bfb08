package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/TableFox/internal/pkg/tenantcontext"
)

// RequireTenant rejects requests that reached it without an authenticated
// tenant, returning JSON 401.
func RequireTenant(c *fiber.Ctx) error {
	if !tenantcontext.Get(c).IsAuthenticated() {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "tenant authentication required",
		})
	}
	return c.Next()
}
