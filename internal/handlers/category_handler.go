package handlers

import (
	"strings"

	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type CategoryHandler struct {
	categoryService *services.CategoryService
	reportService   *services.ReportService
}

func NewCategoryHandler(categoryService *services.CategoryService, reportService *services.ReportService) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService, reportService: reportService}
}

func (h *CategoryHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateCategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}
	category, err := h.categoryService.Create(c.UserContext(), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(category)
}

func (h *CategoryHandler) List(c *fiber.Ctx) error {
	categories, err := h.categoryService.List(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(categories)
}

// GetMany serves /categories/:ids where ids is a comma-separated list.
func (h *CategoryHandler) GetMany(c *fiber.Ctx) error {
	categories, err := h.categoryService.GetMany(c.UserContext(), strings.Split(c.Params("ids"), ","))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(categories)
}

// PublishReport creates a report inside the category named in the path.
func (h *CategoryHandler) PublishReport(c *fiber.Ctx) error {
	var req dto.PublishReportRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}
	report, err := h.reportService.Publish(c.UserContext(), c.Params("id"), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}
