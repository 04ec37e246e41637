package routes

import (
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/relatai-backend/internal/middleware"
	"github.com/gofiber/fiber/v2"
)

// readCacheSeconds is how long clients may reuse category and report reads.
const readCacheSeconds = 5

func Setup(
	app *fiber.App,
	cfg *config.Config,
	healthHandler *handlers.HealthHandler,
	categoryHandler *handlers.CategoryHandler,
	reportHandler *handlers.ReportHandler,
	userHandler *handlers.UserHandler,
	adminHandler *handlers.AdminHandler,
) {
	api := app.Group("/api")

	api.Get("/health", healthHandler.Check)

	cached := middleware.CacheFor(readCacheSeconds)

	// Categories
	categories := api.Group("/categories")
	categories.Get("/", cached, categoryHandler.List)
	categories.Post("/", categoryHandler.Create)
	categories.Get("/:ids", cached, categoryHandler.GetMany)
	categories.Post("/:id/reports", categoryHandler.PublishReport)

	// Reports; /users/:uid must be registered before /:id.
	reports := api.Group("/reports")
	reports.Get("/", cached, reportHandler.List)
	reports.Get("/users/:uid", cached, reportHandler.ListByUser)
	reports.Get("/:id", cached, reportHandler.Get)
	reports.Post("/:id/reactions", reportHandler.React)
	reports.Delete("/:id", reportHandler.Remove)

	// Users
	users := api.Group("/users")
	users.Get("/", userHandler.List)
	users.Get("/:phone", userHandler.Resolve)

	// Operations
	admin := api.Group("/admin", middleware.AdminRequired(cfg))
	admin.Post("/sweep", adminHandler.Sweep)
}
