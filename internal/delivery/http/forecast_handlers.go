package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kitchenops/backend/internal/domain"
	"github.com/kitchenops/backend/internal/service"
)

type forecastRequest struct {
	Item           domain.ItemRef    `json:"item"`
	StartDate      string            `json:"start_date"`
	EndDate        string            `json:"end_date"`
	Method         string            `json:"method"`
	UseSeasonality bool              `json:"use_seasonality"`
	MethodParams   map[string]any    `json:"method_params"`
	PeriodOfDay    string            `json:"period_of_day"`
	CategoryID     *int64            `json:"category_id"`
	Events         map[string]string `json:"events"`
}

// GenerateForecast runs a forecast job and returns the persisted record
func (h *Handler) GenerateForecast(c *fiber.Ctx) error {
	var req forecastRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid request body")
	}
	start, err := domain.ParseDate(req.StartDate)
	if err != nil {
		return err
	}
	end, err := domain.ParseDate(req.EndDate)
	if err != nil {
		return err
	}
	for d := range req.Events {
		if _, err := domain.ParseDate(d); err != nil {
			return err
		}
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()
	fc, err := h.forecasts.GenerateForecast(ctx, domain.ForecastRequest{
		Item:           req.Item,
		StartDate:      start,
		EndDate:        end,
		Method:         domain.Method(req.Method),
		UseSeasonality: req.UseSeasonality,
		MethodParams:   req.MethodParams,
		PeriodOfDay:    req.PeriodOfDay,
		CategoryID:     req.CategoryID,
		Events:         req.Events,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    fc,
	})
}

// GetForecast returns one forecast
func (h *Handler) GetForecast(c *fiber.Ctx) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	fc, err := h.forecasts.GetForecast(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": fc})
}

// ListForecasts pages through forecasts, filtered by item and method
func (h *Handler) ListForecasts(c *fiber.Ctx) error {
	item, err := itemFromQuery(c)
	if err != nil {
		return err
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	page, err := h.forecasts.ListForecasts(ctx, domain.ForecastFilter{
		Item:   item,
		Method: domain.Method(c.Query("method")),
	}, pagination(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": page})
}

// CreateFactor stores a seasonal factor
func (h *Handler) CreateFactor(c *fiber.Ctx) error {
	var in service.FactorInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest("invalid request body")
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	f, err := h.factors.CreateFactor(ctx, in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": f})
}

// UpdateFactor replaces a seasonal factor
func (h *Handler) UpdateFactor(c *fiber.Ctx) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	var in service.FactorInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest("invalid request body")
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	f, err := h.factors.UpdateFactor(ctx, id, in)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": f})
}

// DeleteFactor removes a seasonal factor
func (h *Handler) DeleteFactor(c *fiber.Ctx) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	if err := h.factors.DeleteFactor(ctx, id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetFactor returns one seasonal factor
func (h *Handler) GetFactor(c *fiber.Ctx) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	f, err := h.factors.GetFactor(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": f})
}

// ListFactors filters factors by scope and selector
func (h *Handler) ListFactors(c *fiber.Ctx) error {
	item, err := itemFromQuery(c)
	if err != nil {
		return err
	}
	filter := domain.FactorFilter{Item: item, GlobalOnly: c.QueryBool("global", false)}
	if filter.Month, err = intQuery(c, "month"); err != nil {
		return err
	}
	if filter.Weekday, err = intQuery(c, "weekday"); err != nil {
		return err
	}
	if cat, err := intQuery(c, "category_id"); err != nil {
		return err
	} else if cat != nil {
		id := int64(*cat)
		filter.CategoryID = &id
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()
	factors, err := h.factors.ListFactors(ctx, filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    factors,
		"count":   len(factors),
	})
}
