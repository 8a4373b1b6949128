package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/kitchenops/backend/internal/domain"
)

// maxRowErrors caps the per-row reasons returned in an import summary
const maxRowErrors = 100

// ExportHeader is the fixed column set of the sales export
var ExportHeader = []string{
	"ID", "Date", "Type", "ItemID", "ItemName", "Quantity", "UnitPrice",
	"TotalPrice", "PeriodOfDay", "Weekday", "Weather", "Temperature", "Event",
}

// RowError explains why one CSV line was skipped
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// ImportSummary is the outcome of a CSV import
type ImportSummary struct {
	Imported int        `json:"imported"`
	Skipped  int        `json:"skipped"`
	Errors   []RowError `json:"errors,omitempty"`
}

func (s *ImportSummary) skip(line int, err error) {
	s.Skipped++
	if len(s.Errors) < maxRowErrors {
		s.Errors = append(s.Errors, RowError{Line: line, Reason: err.Error()})
	}
}

// column keys after header normalization
const (
	colDate        = "date"
	colKind        = "kind"
	colItemID      = "item_id"
	colQuantity    = "quantity"
	colUnitPrice   = "unit_price"
	colPeriod      = "period_of_day"
	colWeather     = "weather"
	colTemperature = "temperature"
	colEvent       = "event"
	colHoliday     = "holiday"
)

// headerAliases maps normalized header names (lower case, no separators)
// to column keys. Both the Portuguese import headers and the export headers
// are accepted.
var headerAliases = map[string]string{
	"data":           colDate,
	"date":           colDate,
	"tipoitem":       colKind,
	"type":           colKind,
	"itemtype":       colKind,
	"itemid":         colItemID,
	"quantidade":     colQuantity,
	"quantity":       colQuantity,
	"valorunitario":  colUnitPrice,
	"unitprice":      colUnitPrice,
	"periododia":     colPeriod,
	"periodofday":    colPeriod,
	"clima":          colWeather,
	"weather":        colWeather,
	"temperatura":    colTemperature,
	"temperature":    colTemperature,
	"eventoespecial": colEvent,
	"event":          colEvent,
	"eventlabel":     colEvent,
	"feriado":        colHoliday,
	"isholiday":      colHoliday,
	"holiday":        colHoliday,
}

var requiredColumns = []string{colDate, colKind, colItemID, colQuantity, colUnitPrice}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer("_", "", " ", "", "-", "").Replace(h)
}

// ImportSalesCSV reads a semicolon separated file with a header row. Each
// row is validated on its own; unparsable rows and rows referencing unknown
// items are skipped and reported. Only a store failure aborts the import.
func (s *SalesService) ImportSalesCSV(ctx context.Context, r io.Reader) (ImportSummary, error) {
	var summary ImportSummary

	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return summary, fmt.Errorf("%w: empty file, header row is required", domain.ErrParse)
	}
	if err != nil {
		return summary, fmt.Errorf("%w: header: %v", domain.ErrParse, err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		if key, ok := headerAliases[normalizeHeader(h)]; ok {
			if _, dup := cols[key]; !dup {
				cols[key] = i
			}
		}
	}
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			return summary, fmt.Errorf("%w: missing required column %q", domain.ErrParse, c)
		}
	}

	catalog := newNames(s.repo)
	batch := make([]*domain.SalesRecord, 0, importBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := s.repo.InsertSales(ctx, batch)
		if err != nil {
			return internal("sales: import", err)
		}
		summary.Imported += n
		batch = batch[:0]
		return nil
	}

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				summary.skip(perr.Line, fmt.Errorf("%w: %v", domain.ErrParse, perr.Err))
				continue
			}
			return summary, fmt.Errorf("%w: read csv: %w", domain.ErrInternal, err)
		}
		line, _ := reader.FieldPos(0)

		rec, err := parseSaleRow(row, cols)
		if err != nil {
			summary.skip(line, err)
			continue
		}
		exists, err := catalog.exist(ctx, rec.Item)
		if err != nil {
			return summary, internal("sales: item lookup", err)
		}
		if !exists {
			summary.skip(line, fmt.Errorf("%w: %s does not exist", domain.ErrNotFound, rec.Item))
			continue
		}
		rec.ItemName = catalog.name(ctx, rec.Item)

		batch = append(batch, rec)
		if len(batch) == importBatchSize {
			if err := flush(); err != nil {
				return summary, err
			}
		}
	}
	if err := flush(); err != nil {
		return summary, err
	}

	s.metrics.ObserveImport(summary.Imported, summary.Skipped)
	s.logger.WithFields(logrus.Fields{
		"module":   "service",
		"func":     "ImportSalesCSV",
		"imported": summary.Imported,
		"skipped":  summary.Skipped,
	}).Info("sales import finished")
	return summary, nil
}

// parseSaleRow converts one CSV row into a prepared record
func parseSaleRow(row []string, cols map[string]int) (*domain.SalesRecord, error) {
	get := func(key string) string {
		i, ok := cols[key]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	for _, c := range requiredColumns {
		if get(c) == "" {
			return nil, fmt.Errorf("%w: %s is empty", domain.ErrParse, c)
		}
	}

	date, err := domain.ParseDate(get(colDate))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date %q", domain.ErrParse, get(colDate))
	}
	kind, err := domain.ParseItemKind(get(colKind))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid item type %q", domain.ErrParse, get(colKind))
	}
	id, err := strconv.ParseInt(get(colItemID), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid item id %q", domain.ErrParse, get(colItemID))
	}
	qty, err := parseDecimal(get(colQuantity))
	if err != nil || !qty.IsInteger() {
		return nil, fmt.Errorf("%w: invalid quantity %q", domain.ErrParse, get(colQuantity))
	}
	price, err := parseDecimal(get(colUnitPrice))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid unit price %q", domain.ErrParse, get(colUnitPrice))
	}

	sc := domain.SaleContext{
		PeriodOfDay: get(colPeriod),
		Weather:     get(colWeather),
		EventLabel:  get(colEvent),
	}
	if t := get(colTemperature); t != "" {
		v, err := parseDecimal(t)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid temperature %q", domain.ErrParse, t)
		}
		f := v.InexactFloat64()
		sc.Temperature = &f
	}
	if h := get(colHoliday); h != "" {
		b, err := parseBool(h)
		if err != nil {
			return nil, err
		}
		sc.IsHoliday = b
	}

	return domain.NewSalesRecord(date, domain.ItemRef{Kind: kind, ID: id}, int(qty.IntPart()), price, sc)
}

// parseDecimal accepts "," or "." as the decimal separator. When both appear,
// the last one is the decimal separator and the other groups thousands.
func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	comma, dot := strings.LastIndex(s, ","), strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && dot >= 0 && comma > dot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case comma >= 0 && dot >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		s = strings.Replace(s, ",", ".", 1)
	}
	return decimal.NewFromString(s)
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "t", "sim", "s", "yes", "y":
		return true, nil
	case "0", "false", "f", "nao", "não", "n", "no":
		return false, nil
	}
	return false, fmt.Errorf("%w: invalid holiday flag %q", domain.ErrParse, s)
}

// ExportSalesCSV streams the filtered records as a semicolon separated file
func (s *SalesService) ExportSalesCSV(ctx context.Context, w io.Writer, filter domain.SalesFilter) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	if err := cw.Write(ExportHeader); err != nil {
		return fmt.Errorf("%w: write csv: %w", domain.ErrInternal, err)
	}

	catalog := newNames(s.repo)
	err := s.eachSale(ctx, filter, func(rec domain.SalesRecord) error {
		if err := cw.Write(exportRow(ctx, rec, catalog)); err != nil {
			return fmt.Errorf("%w: write csv: %w", domain.ErrInternal, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("%w: write csv: %w", domain.ErrInternal, err)
	}
	return nil
}

// exportRow renders one record in ExportHeader order
func exportRow(ctx context.Context, rec domain.SalesRecord, catalog *names) []string {
	name := rec.ItemName
	if name == "" {
		name = catalog.name(ctx, rec.Item)
	}
	temperature := ""
	if rec.Temperature != nil {
		temperature = strconv.FormatFloat(*rec.Temperature, 'f', -1, 64)
	}
	return []string{
		rec.ID.String(),
		domain.FormatDate(rec.Date),
		string(rec.Item.Kind),
		strconv.FormatInt(rec.Item.ID, 10),
		name,
		strconv.Itoa(rec.Quantity),
		rec.UnitPrice.StringFixed(2),
		rec.TotalPrice.StringFixed(2),
		rec.PeriodOfDay,
		strconv.Itoa(rec.Weekday),
		rec.Weather,
		temperature,
		rec.EventLabel,
	}
}
