package domain

import (
	"time"

	"github.com/google/uuid"
)

// Method selects the forecast algorithm
type Method string

const (
	MethodMovingAverage     Method = "moving_average"
	MethodLinearRegression  Method = "linear_regression"
	MethodSeasonalityHybrid Method = "seasonality_hybrid"
)

// Known reports whether m is one of the supported method tags
func (m Method) Known() bool {
	switch m {
	case MethodMovingAverage, MethodLinearRegression, MethodSeasonalityHybrid:
		return true
	}
	return false
}

// ForecastStatus is the record lifecycle: draft until the store accepts it
type ForecastStatus string

const (
	ForecastDraft     ForecastStatus = "draft"
	ForecastPersisted ForecastStatus = "persisted"
)

// Forecast is a persisted, read-only demand prediction
type Forecast struct {
	ID          uuid.UUID      `json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	StartDate   time.Time      `json:"start_date"`
	EndDate     time.Time      `json:"end_date"`
	Item        ItemRef        `json:"item"`
	Method      Method         `json:"method"`
	Parameters  map[string]any `json:"parameters"`
	Predictions map[string]int `json:"predictions"`
	Confidence  float64        `json:"confidence"`
	Status      ForecastStatus `json:"status"`
}

// ForecastRequest is the input of the forecast job
type ForecastRequest struct {
	Item           ItemRef
	StartDate      time.Time
	EndDate        time.Time
	Method         Method
	UseSeasonality bool
	MethodParams   map[string]any

	// PeriodOfDay restricts history to one period and is used for factor matching.
	PeriodOfDay string
	// CategoryID enables category-scoped factors.
	CategoryID *int64
	// Events labels forecast dates (ISO date -> label).
	Events map[string]string
}

// ForecastFilter narrows list_forecasts
type ForecastFilter struct {
	Item   *ItemRef
	Method Method
}

// Match reports whether fc passes the filter
func (f ForecastFilter) Match(fc Forecast) bool {
	if f.Item != nil && fc.Item != *f.Item {
		return false
	}
	if f.Method != "" && fc.Method != f.Method {
		return false
	}
	return true
}
