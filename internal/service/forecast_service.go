package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kitchenops/backend/internal/config"
	"github.com/kitchenops/backend/internal/domain"
	"github.com/kitchenops/backend/internal/events"
	"github.com/kitchenops/backend/internal/forecast"
	"github.com/kitchenops/backend/internal/metrics"
	"github.com/kitchenops/backend/pkg/utils"
)

// ForecastSettings tunes the orchestrator
type ForecastSettings struct {
	MinHistoryPoints int
	DefaultWindow    int
	// Now is the clock used to place the history window; defaults to time.Now
	Now func() time.Time
}

// ForecastService orchestrates a forecast job: history sampling,
// seasonality, the engine run and the single persistence write.
type ForecastService struct {
	repo      DataRepository
	seasons   *SeasonalityRegistry
	publisher events.Publisher
	metrics   *metrics.Registry
	logger    *logrus.Logger
	settings  ForecastSettings

	wgBg sync.WaitGroup // tracks event publishing for graceful shutdown
}

// NewForecastService creates the orchestrator. publisher and reg may be nil.
func NewForecastService(
	repo DataRepository,
	publisher events.Publisher,
	reg *metrics.Registry,
	logger *logrus.Logger,
	settings ForecastSettings,
) *ForecastService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if settings.MinHistoryPoints < 1 {
		settings.MinHistoryPoints = 5
	}
	if settings.DefaultWindow < 1 {
		settings.DefaultWindow = forecast.DefaultWindow
	}
	if settings.Now == nil {
		settings.Now = time.Now
	}
	if logger == nil {
		logger = config.NewLogger("info", io.Discard)
	}
	return &ForecastService{
		repo:      repo,
		seasons:   NewSeasonalityRegistry(repo),
		publisher: publisher,
		metrics:   reg,
		logger:    logger,
		settings:  settings,
	}
}

// WaitBackground blocks until pending event publishes complete
func (s *ForecastService) WaitBackground() {
	s.wgBg.Wait()
}

// plan is a validated request with its method resolved
type plan struct {
	req         domain.ForecastRequest
	runMethod   domain.Method
	tag         domain.Method
	window      int
	horizon     int
	historyDays int
}

// GenerateForecast runs the forecast job and returns the persisted record.
// Nothing is written unless every step succeeds.
func (s *ForecastService) GenerateForecast(ctx context.Context, req domain.ForecastRequest) (fc domain.Forecast, err error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveForecast(string(fc.Method), string(domain.KindOf(err)), time.Since(start))
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"module":    "service",
				"func":      "GenerateForecast",
				"item_kind": req.Item.Kind,
				"item_id":   req.Item.ID,
				"method":    req.Method,
				"kind":      domain.KindOf(err),
			}).Warn(err.Error())
		}
	}()

	p, err := s.plan(req)
	if err != nil {
		return domain.Forecast{}, err
	}

	exists, err := domain.ItemExists(ctx, s.repo, req.Item)
	if err != nil {
		return domain.Forecast{}, internal("forecast: item lookup", err)
	}
	if !exists {
		return domain.Forecast{}, fmt.Errorf("%w: %s does not exist", domain.ErrNotFound, req.Item)
	}

	points, err := s.history(ctx, p)
	if err != nil {
		return domain.Forecast{}, err
	}

	var factors FactorSet
	series := Quantities(points)
	if req.UseSeasonality {
		factors, err = s.seasons.FactorsFor(ctx, req.Item, req.CategoryID)
		if err != nil {
			return domain.Forecast{}, err
		}
		series, err = Deseasonalize(points, factors, req.PeriodOfDay)
		if err != nil {
			return domain.Forecast{}, err
		}
	}

	res, err := forecast.Run(p.runMethod, series, p.horizon, forecast.Params{Window: p.window})
	if err != nil {
		return domain.Forecast{}, err
	}
	future := forecast.Future(res.Extended, len(series), p.horizon)
	dates := domain.DateRange(req.StartDate, req.EndDate)

	fc = domain.Forecast{
		ID:          uuid.New(),
		StartDate:   domain.DateOf(req.StartDate),
		EndDate:     domain.DateOf(req.EndDate),
		Item:        req.Item,
		Method:      p.tag,
		Parameters:  s.parameters(p, len(points), factors),
		Predictions: Reseasonalize(dates, future, factors, req.PeriodOfDay, req.Events),
		Confidence:  utils.RoundTo(utils.Clamp(res.Confidence, 0, 1), 4),
		Status:      domain.ForecastDraft,
	}

	// an aborted request must not commit
	if err := ctx.Err(); err != nil {
		return domain.Forecast{}, fmt.Errorf("forecast: request aborted: %w", err)
	}
	if err := s.repo.SaveForecast(ctx, &fc); err != nil {
		return domain.Forecast{}, internal("forecast: save", err)
	}

	s.logger.WithFields(logrus.Fields{
		"module":      "service",
		"func":        "GenerateForecast",
		"forecast_id": fc.ID,
		"item_kind":   fc.Item.Kind,
		"item_id":     fc.Item.ID,
		"method":      fc.Method,
		"points":      len(points),
	}).Info("forecast generated")

	s.publish(fc)
	return fc, nil
}

// plan validates the request and resolves the engine method and knobs
func (s *ForecastService) plan(req domain.ForecastRequest) (plan, error) {
	if err := req.Item.Validate(); err != nil {
		return plan{}, err
	}
	if req.StartDate.IsZero() || req.EndDate.IsZero() {
		return plan{}, fmt.Errorf("%w: start_date and end_date are required", domain.ErrValidation)
	}
	if !domain.DateOf(req.EndDate).After(domain.DateOf(req.StartDate)) {
		return plan{}, fmt.Errorf("%w: end_date must be after start_date", domain.ErrValidation)
	}

	p := plan{req: req, horizon: domain.DaysBetween(req.StartDate, req.EndDate) + 1}
	switch {
	case req.Method == domain.MethodMovingAverage || req.Method == domain.MethodLinearRegression:
		p.runMethod, p.tag = req.Method, req.Method
	case req.Method == domain.MethodSeasonalityHybrid || req.UseSeasonality:
		// hybrid, and any unknown method with seasonality on, is regression
		// on the deseasonalized series
		p.runMethod, p.tag = domain.MethodLinearRegression, domain.MethodSeasonalityHybrid
	default:
		return plan{}, fmt.Errorf("%w: unknown forecast method %q", domain.ErrValidation, req.Method)
	}

	window, ok, err := intParam(req.MethodParams, "window")
	if err != nil {
		return plan{}, err
	}
	if !ok {
		window = s.settings.DefaultWindow
	}
	if window < 1 {
		return plan{}, fmt.Errorf("%w: window must be positive", domain.ErrValidation)
	}
	p.window = window

	historyDays, ok, err := intParam(req.MethodParams, "history_days")
	if err != nil {
		return plan{}, err
	}
	if !ok {
		historyDays = p.horizon
	}
	if historyDays < 1 {
		return plan{}, fmt.Errorf("%w: history_days must be positive", domain.ErrValidation)
	}
	p.historyDays = historyDays
	return p, nil
}

// history loads and aggregates the sampling window
// [today - (end-start) - history_days, today - 1].
func (s *ForecastService) history(ctx context.Context, p plan) ([]DailyPoint, error) {
	today := domain.DateOf(s.settings.Now())
	span := domain.DaysBetween(p.req.StartDate, p.req.EndDate)
	from := today.AddDate(0, 0, -span-p.historyDays)
	to := today.AddDate(0, 0, -1)

	records, err := s.repo.SalesByItemBetween(ctx, p.req.Item, from, to)
	if err != nil {
		return nil, internal("forecast: load history", err)
	}
	if p.req.PeriodOfDay != "" {
		kept := records[:0:0]
		for _, r := range records {
			if r.PeriodOfDay == p.req.PeriodOfDay {
				kept = append(kept, r)
			}
		}
		records = kept
	}

	points := Aggregate(records)
	if len(points) < s.settings.MinHistoryPoints {
		return nil, fmt.Errorf("%w: %d daily points between %s and %s, need %d",
			domain.ErrInsufficientHistory, len(points),
			domain.FormatDate(from), domain.FormatDate(to), s.settings.MinHistoryPoints)
	}
	return points, nil
}

func (s *ForecastService) parameters(p plan, points int, factors FactorSet) map[string]any {
	methodParams := make(map[string]any, len(p.req.MethodParams))
	for k, v := range p.req.MethodParams {
		methodParams[k] = v
	}
	params := map[string]any{
		"method_params":   methodParams,
		"use_seasonality": p.req.UseSeasonality,
		"horizon":         p.horizon,
		"history_days":    p.historyDays,
		"history_points":  points,
	}
	if p.runMethod == domain.MethodMovingAverage {
		params["window"] = p.window
	}
	if p.req.UseSeasonality {
		params["factors"] = factors.Snapshot()
	}
	if p.req.PeriodOfDay != "" {
		params["period_of_day"] = p.req.PeriodOfDay
	}
	if p.req.CategoryID != nil {
		params["category_id"] = *p.req.CategoryID
	}
	return params
}

// publish announces the forecast in the background; failures are only logged
func (s *ForecastService) publish(fc domain.Forecast) {
	ev := events.ForecastGenerated{
		ForecastID: fc.ID.String(),
		ItemKind:   string(fc.Item.Kind),
		ItemID:     fc.Item.ID,
		Method:     string(fc.Method),
		StartDate:  domain.FormatDate(fc.StartDate),
		EndDate:    domain.FormatDate(fc.EndDate),
		Confidence: fc.Confidence,
		CreatedAt:  fc.CreatedAt,
	}
	s.wgBg.Add(1)
	go func() {
		defer s.wgBg.Done()
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.publisher.PublishForecast(bgCtx, ev); err != nil {
			config.LogError(s.logger, "service", "publish", "forecast event", ev.ForecastID, err)
		}
	}()
}

// GetForecast returns one persisted forecast
func (s *ForecastService) GetForecast(ctx context.Context, id uuid.UUID) (domain.Forecast, error) {
	fc, err := s.repo.GetForecast(ctx, id)
	if err != nil {
		return domain.Forecast{}, internal("forecast: get", err)
	}
	return fc, nil
}

// ListForecasts pages through persisted forecasts, newest first
func (s *ForecastService) ListForecasts(ctx context.Context, filter domain.ForecastFilter, page domain.Pagination) (domain.Page[domain.Forecast], error) {
	if filter.Item != nil {
		if err := filter.Item.Validate(); err != nil {
			return domain.Page[domain.Forecast]{}, err
		}
	}
	out, err := s.repo.ListForecasts(ctx, filter, page.Normalize())
	if err != nil {
		return domain.Page[domain.Forecast]{}, internal("forecast: list", err)
	}
	return out, nil
}

// intParam reads an integer knob from method params decoded from JSON or set in code
func intParam(params map[string]any, key string) (int, bool, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return 0, false, nil
	}
	switch v := raw.(type) {
	case int:
		return v, true, nil
	case int64:
		return int(v), true, nil
	case float64:
		if v != math.Trunc(v) {
			return 0, false, fmt.Errorf("%w: %s must be an integer", domain.ErrValidation, key)
		}
		return int(v), true, nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false, fmt.Errorf("%w: %s must be an integer", domain.ErrValidation, key)
		}
		return int(n), true, nil
	}
	return 0, false, fmt.Errorf("%w: %s must be an integer", domain.ErrValidation, key)
}
