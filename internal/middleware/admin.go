package middleware

import (
	"crypto/subtle"

	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/dto"
	"github.com/gofiber/fiber/v2"
)

// AdminRequired checks the X-Admin-Token header against ADMIN_TOKEN. With no
// token configured the admin routes are closed.
func AdminRequired(cfg *config.Config) fiber.Handler {
	expected := []byte(cfg.AdminToken)

	return func(c *fiber.Ctx) error {
		if len(expected) == 0 {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error: true, Message: "Admin access disabled",
			})
		}
		given := []byte(c.Get("X-Admin-Token"))
		if subtle.ConstantTimeCompare(given, expected) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}
		return c.Next()
	}
}
