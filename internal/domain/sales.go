package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxQuantity is the largest quantity the sales table can hold
const MaxQuantity = math.MaxInt32

// exclusive upper bounds of NUMERIC(12,2) and NUMERIC(14,2)
var (
	maxUnitPrice  = decimal.New(1, 10)
	maxTotalPrice = decimal.New(1, 12)
)

// SalesRecord is one immutable line of sales history
type SalesRecord struct {
	ID          uuid.UUID       `json:"id"`
	Date        time.Time       `json:"date"`
	Item        ItemRef         `json:"item"`
	ItemName    string          `json:"item_name,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	PeriodOfDay string          `json:"period_of_day,omitempty"`
	Weekday     int             `json:"weekday"`
	WeekOfMonth int             `json:"week_of_month"`
	Month       int             `json:"month"`
	IsHoliday   bool            `json:"is_holiday"`
	EventLabel  string          `json:"event_label,omitempty"`
	Weather     string          `json:"weather,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// SaleContext is the optional context attached to a sale
type SaleContext struct {
	PeriodOfDay string   `json:"period_of_day,omitempty"`
	Weather     string   `json:"weather,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	EventLabel  string   `json:"event_label,omitempty"`
	IsHoliday   bool     `json:"is_holiday"`
}

// NewSalesRecord builds a record ready for insertion
func NewSalesRecord(date time.Time, item ItemRef, quantity int, unitPrice decimal.Decimal, sc SaleContext) (*SalesRecord, error) {
	rec := &SalesRecord{
		Date:        date,
		Item:        item,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		PeriodOfDay: sc.PeriodOfDay,
		Weather:     sc.Weather,
		Temperature: sc.Temperature,
		EventLabel:  sc.EventLabel,
		IsHoliday:   sc.IsHoliday,
	}
	if err := PrepareSale(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// PrepareSale enforces the insert-time invariants: a valid item reference,
// non-negative quantity and price with at most two decimals, the total
// equal to quantity*unit_price, and temporal features derived from the date.
// A zero total is filled in; a non-zero mismatching total is rejected.
func PrepareSale(rec *SalesRecord) error {
	if rec.Date.IsZero() {
		return fmt.Errorf("%w: sale date is required", ErrValidation)
	}
	if err := rec.Item.Validate(); err != nil {
		return err
	}
	if rec.Quantity < 0 {
		return fmt.Errorf("%w: quantity must not be negative", ErrValidation)
	}
	if rec.Quantity > MaxQuantity {
		return fmt.Errorf("%w: quantity %d exceeds %d", ErrValidation, rec.Quantity, MaxQuantity)
	}
	if rec.UnitPrice.IsNegative() {
		return fmt.Errorf("%w: unit price must not be negative", ErrValidation)
	}
	if !rec.UnitPrice.Equal(rec.UnitPrice.Round(2)) {
		return fmt.Errorf("%w: unit price %s has more than 2 decimals", ErrValidation, rec.UnitPrice)
	}

	total := rec.UnitPrice.Mul(decimal.NewFromInt(int64(rec.Quantity)))
	if rec.TotalPrice.IsZero() {
		rec.TotalPrice = total
	} else if !rec.TotalPrice.Equal(total) {
		return fmt.Errorf("%w: total price %s does not equal %d x %s", ErrValidation, rec.TotalPrice, rec.Quantity, rec.UnitPrice)
	}
	if rec.UnitPrice.GreaterThanOrEqual(maxUnitPrice) {
		return fmt.Errorf("%w: unit price %s is out of range", ErrValidation, rec.UnitPrice)
	}
	if rec.TotalPrice.GreaterThanOrEqual(maxTotalPrice) {
		return fmt.Errorf("%w: total price %s is out of range", ErrValidation, rec.TotalPrice)
	}

	rec.Date = DateOf(rec.Date)
	f := Features(rec.Date)
	rec.Weekday = f.Weekday
	rec.WeekOfMonth = f.WeekOfMonth
	rec.Month = f.Month

	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	return nil
}

// SalesFilter narrows list and export queries. Zero values mean "any".
type SalesFilter struct {
	Item        *ItemRef
	From        *time.Time
	To          *time.Time
	PeriodOfDay string
}

// Match reports whether rec passes the filter
func (f SalesFilter) Match(rec SalesRecord) bool {
	if f.Item != nil && rec.Item != *f.Item {
		return false
	}
	if f.From != nil && rec.Date.Before(DateOf(*f.From)) {
		return false
	}
	if f.To != nil && rec.Date.After(DateOf(*f.To)) {
		return false
	}
	if f.PeriodOfDay != "" && rec.PeriodOfDay != f.PeriodOfDay {
		return false
	}
	return true
}
