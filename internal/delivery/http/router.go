package http

import (
	nethttp "net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

// SetupRoutes configures all HTTP routes. metricsHandler may be nil.
func SetupRoutes(app *fiber.App, handler *Handler, metricsHandler nethttp.Handler) {
	// Health check
	app.Get("/health", handler.HealthCheck)
	if metricsHandler != nil {
		app.Get("/metrics", adaptor.HTTPHandler(metricsHandler))
	}

	// API v1 routes
	api := app.Group("/api/v1")
	{
		// Sales history
		sales := api.Group("/sales")
		sales.Post("/", handler.RecordSale)
		sales.Get("/", handler.ListSales)
		sales.Get("/stats", handler.SalesStats)
		sales.Get("/export", handler.ExportSales)
		sales.Post("/import", handler.ImportSales)
		sales.Get("/:id", handler.GetSale)
		sales.Delete("/:id", handler.DeleteSale)

		// Seasonality registry
		factors := api.Group("/factors")
		factors.Post("/", handler.CreateFactor)
		factors.Get("/", handler.ListFactors)
		factors.Get("/:id", handler.GetFactor)
		factors.Put("/:id", handler.UpdateFactor)
		factors.Delete("/:id", handler.DeleteFactor)

		// Forecasts
		forecasts := api.Group("/forecasts")
		forecasts.Post("/", handler.GenerateForecast)
		forecasts.Get("/", handler.ListForecasts)
		forecasts.Get("/:id", handler.GetForecast)
	}
}
