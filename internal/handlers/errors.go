package handlers

import (
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/engine"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/lock"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/store"
	"github.com/gofiber/fiber/v2"
)

// respondError maps service and engine errors onto status codes. Details of
// server-side failures are logged, not returned.
func respondError(c *fiber.Ctx, err error) error {
	var (
		rejected *services.ContentRejectedError
		partial  *engine.PartialRemovalError
	)
	switch {
	case errors.As(err, &rejected):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{
			Error: true, Message: rejected.Error(), Reason: rejected.Reason,
		})
	case errors.Is(err, engine.ErrReportNotFound), errors.Is(err, engine.ErrCategoryNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	case errors.Is(err, engine.ErrInvalidReaction),
		errors.Is(err, engine.ErrInvalidReport),
		errors.Is(err, services.ErrInvalidCategory),
		errors.Is(err, services.ErrInvalidPhone):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	case errors.Is(err, engine.ErrConflict), errors.Is(err, store.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Error: true, Message: "Report changed concurrently, please retry",
		})
	case errors.As(err, &partial):
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Report removal did not complete",
		})
	case errors.Is(err, engine.ErrStoreUnavailable),
		errors.Is(err, store.ErrUnavailable),
		errors.Is(err, lock.ErrLockTimeout):
		slog.Warn("dependency unavailable", "method", c.Method(), "path", c.Path(), "error", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
			Error: true, Message: "Service temporarily unavailable, please retry",
		})
	default:
		slog.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Internal server error",
		})
	}
}

func invalidBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error: true, Message: "Invalid request body",
	})
}
