package middleware

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

func SecurityHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	}
}

// CacheFor lets clients reuse successful GET responses for seconds.
func CacheFor(seconds int) fiber.Handler {
	value := "public, max-age=" + strconv.Itoa(seconds)
	return func(c *fiber.Ctx) error {
		err := c.Next()
		if c.Method() == fiber.MethodGet && c.Response().StatusCode() < 300 {
			c.Set(fiber.HeaderCacheControl, value)
		}
		return err
	}
}
