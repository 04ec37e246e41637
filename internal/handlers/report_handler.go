package handlers

import (
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type ReportHandler struct {
	reportService *services.ReportService
}

func NewReportHandler(reportService *services.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

func (h *ReportHandler) List(c *fiber.Ctx) error {
	reports, err := h.reportService.List(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(reports)
}

func (h *ReportHandler) Get(c *fiber.Ctx) error {
	report, err := h.reportService.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(report)
}

func (h *ReportHandler) ListByUser(c *fiber.Ctx) error {
	reports, err := h.reportService.ListByUser(c.UserContext(), c.Params("uid"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(reports)
}

// React submits a confirmation or denunciation. Votes that are not counted
// still answer 200 with the current counters.
func (h *ReportHandler) React(c *fiber.Ctx) error {
	var req dto.ReactionRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}
	result, err := h.reportService.React(c.UserContext(), c.Params("id"), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

func (h *ReportHandler) Remove(c *fiber.Ctx) error {
	if err := h.reportService.Remove(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "Report removed"})
}
