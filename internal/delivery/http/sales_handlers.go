package http

import (
	"bytes"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/kitchenops/backend/internal/domain"
	"github.com/kitchenops/backend/internal/service"
)

type recordSaleRequest struct {
	Date        string          `json:"date"`
	Item        domain.ItemRef  `json:"item"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	PeriodOfDay string          `json:"period_of_day"`
	Weather     string          `json:"weather"`
	Temperature *float64        `json:"temperature"`
	EventLabel  string          `json:"event_label"`
	IsHoliday   bool            `json:"is_holiday"`
}

// RecordSale stores one manually entered sale
func (h *Handler) RecordSale(c *fiber.Ctx) error {
	var req recordSaleRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid request body")
	}
	date, err := domain.ParseDate(req.Date)
	if err != nil {
		return err
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()
	rec, err := h.sales.RecordSale(ctx, service.RecordSaleInput{
		Date:      date,
		Item:      req.Item,
		Quantity:  req.Quantity,
		UnitPrice: req.UnitPrice,
		Context: domain.SaleContext{
			PeriodOfDay: req.PeriodOfDay,
			Weather:     req.Weather,
			Temperature: req.Temperature,
			EventLabel:  req.EventLabel,
			IsHoliday:   req.IsHoliday,
		},
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    rec,
	})
}

// ListSales pages through filtered sales
func (h *Handler) ListSales(c *fiber.Ctx) error {
	filter, err := salesFilter(c)
	if err != nil {
		return err
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	page, err := h.sales.ListSales(ctx, filter, pagination(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    page,
	})
}

// GetSale returns one sale
func (h *Handler) GetSale(c *fiber.Ctx) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	rec, err := h.sales.GetSale(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": rec})
}

// DeleteSale removes one sale
func (h *Handler) DeleteSale(c *fiber.Ctx) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	if err := h.sales.DeleteSale(ctx, id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SalesStats counts sales dated on or after ?since=
func (h *Handler) SalesStats(c *fiber.Ctx) error {
	since, err := dateQuery(c, "since")
	if err != nil {
		return err
	}
	if since == nil {
		return badRequest("since is required")
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	n, err := h.sales.CountSince(ctx, *since)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"since": domain.FormatDate(*since),
			"count": n,
		},
	})
}

// ImportSales accepts a multipart "file" field or a raw CSV body
func (h *Handler) ImportSales(c *fiber.Ctx) error {
	var r io.Reader
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		fh, err := c.FormFile("file")
		if err != nil {
			return badRequest("multipart field \"file\" is required")
		}
		f, err := fh.Open()
		if err != nil {
			return badRequest("cannot open uploaded file")
		}
		defer f.Close()
		r = f
	} else {
		if len(c.Body()) == 0 {
			return badRequest("empty body")
		}
		r = bytes.NewReader(c.Body())
	}

	// imports outlive the default request timeout
	summary, err := h.sales.ImportSalesCSV(c.UserContext(), r)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    summary,
	})
}

// ExportSales renders filtered sales as CSV (default) or XLSX
func (h *Handler) ExportSales(c *fiber.Ctx) error {
	filter, err := salesFilter(c)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	switch format := c.Query("format", "csv"); format {
	case "csv":
		if err := h.sales.ExportSalesCSV(c.UserContext(), &buf, filter); err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="sales.csv"`)
	case "xlsx":
		if err := h.sales.ExportSalesXLSX(c.UserContext(), &buf, filter); err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="sales.xlsx"`)
	default:
		return badRequest("unknown format %q", format)
	}
	return c.Send(buf.Bytes())
}
