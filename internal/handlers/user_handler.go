package handlers

import (
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// Resolve returns the user for a phone number, registering it on first use.
func (h *UserHandler) Resolve(c *fiber.Ctx) error {
	user, created, err := h.userService.Resolve(c.UserContext(), c.Params("phone"))
	if err != nil {
		return respondError(c, err)
	}
	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(dto.UserResponse{User: user, Created: created})
}

func (h *UserHandler) List(c *fiber.Ctx) error {
	users, err := h.userService.List(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(users)
}
