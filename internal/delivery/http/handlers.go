package http

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kitchenops/backend/internal/config"
	"github.com/kitchenops/backend/internal/domain"
	"github.com/kitchenops/backend/internal/service"
)

// Handler contains all HTTP handlers
type Handler struct {
	sales     *service.SalesService
	factors   *service.FactorService
	forecasts *service.ForecastService
	repo      service.DataRepository
	timeout   time.Duration
}

// NewHandler creates a new handler. timeout bounds each request's store work.
func NewHandler(
	sales *service.SalesService,
	factors *service.FactorService,
	forecasts *service.ForecastService,
	repo service.DataRepository,
	timeout time.Duration,
) *Handler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Handler{
		sales:     sales,
		factors:   factors,
		forecasts: forecasts,
		repo:      repo,
		timeout:   timeout,
	}
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	if err := h.repo.Health(ctx); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":  "degraded",
			"service": "kitchenops-forecasting",
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"status":  "ok",
		"service": "kitchenops-forecasting",
		"version": "1.0.0",
	})
}

func (h *Handler) requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), h.timeout)
}

// StatusFor maps an error kind to its HTTP status
func StatusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation, domain.KindParse:
		return fiber.StatusBadRequest
	case domain.KindNotFound:
		return fiber.StatusNotFound
	case domain.KindInsufficientHistory, domain.KindDegenerateSeasonality:
		return fiber.StatusUnprocessableEntity
	}
	return fiber.StatusInternalServerError
}

// NewErrorHandler renders every error as {"error": true, "kind", "message"}.
// Internal failures are logged and their details hidden from the client.
func NewErrorHandler(logger logrus.FieldLogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			kind := domain.KindInternal
			switch {
			case fe.Code == fiber.StatusNotFound:
				kind = domain.KindNotFound
			case fe.Code >= 400 && fe.Code < 500:
				kind = domain.KindValidation
			}
			return c.Status(fe.Code).JSON(fiber.Map{
				"error":   true,
				"kind":    kind,
				"message": fe.Message,
			})
		}

		kind := domain.KindOf(err)
		message := err.Error()
		if kind == domain.KindInternal {
			if logger != nil {
				config.LogError(logger, "http", "ErrorHandler", c.Method()+" "+c.Path(), nil, err)
			}
			message = "Internal Server Error"
		}
		return c.Status(StatusFor(kind)).JSON(fiber.Map{
			"error":   true,
			"kind":    kind,
			"message": message,
		})
	}
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{domain.ErrValidation}, args...)...)
}

func pathUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, badRequest("invalid %s %q", name, c.Params(name))
	}
	return id, nil
}

// itemFromQuery reads item_kind + item_id; both absent means no item filter
func itemFromQuery(c *fiber.Ctx) (*domain.ItemRef, error) {
	kind, id := c.Query("item_kind"), c.Query("item_id")
	if kind == "" && id == "" {
		return nil, nil
	}
	if kind == "" || id == "" {
		return nil, badRequest("item_kind and item_id go together")
	}
	k, err := domain.ParseItemKind(kind)
	if err != nil {
		return nil, err
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return nil, badRequest("invalid item_id %q", id)
	}
	return &domain.ItemRef{Kind: k, ID: n}, nil
}

func dateQuery(c *fiber.Ctx, name string) (*time.Time, error) {
	v := c.Query(name)
	if v == "" {
		return nil, nil
	}
	d, err := domain.ParseDate(v)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func intQuery(c *fiber.Ctx, name string) (*int, error) {
	v := c.Query(name)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, badRequest("invalid %s %q", name, v)
	}
	return &n, nil
}

func pagination(c *fiber.Ctx) domain.Pagination {
	return domain.Pagination{
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", domain.DefaultPageSize),
	}
}

func salesFilter(c *fiber.Ctx) (domain.SalesFilter, error) {
	var f domain.SalesFilter
	var err error
	if f.Item, err = itemFromQuery(c); err != nil {
		return f, err
	}
	if f.From, err = dateQuery(c, "from"); err != nil {
		return f, err
	}
	if f.To, err = dateQuery(c, "to"); err != nil {
		return f, err
	}
	f.PeriodOfDay = c.Query("period_of_day")
	return f, nil
}
