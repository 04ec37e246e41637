package handlers

import (
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/engine"
	"github.com/gofiber/fiber/v2"
)

type AdminHandler struct {
	engine *engine.Engine
}

func NewAdminHandler(eng *engine.Engine) *AdminHandler {
	return &AdminHandler{engine: eng}
}

// Sweep runs the abandonment sweep now. A sweep already in progress is not
// joined; the response then only carries skipped=true.
func (h *AdminHandler) Sweep(c *fiber.Ctx) error {
	result, err := h.engine.Sweep(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	if result.Skipped {
		return c.Status(fiber.StatusAccepted).JSON(result)
	}
	return c.JSON(result)
}
