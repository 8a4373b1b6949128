package service

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kitchenops/backend/internal/domain"
	"github.com/kitchenops/backend/internal/events"
	"github.com/kitchenops/backend/internal/repository/memory"
)

func newForecastService(repo *memory.Repository, pub events.Publisher, minPoints int) *ForecastService {
	return NewForecastService(repo, pub, nil, quietLogger(), ForecastSettings{
		MinHistoryPoints: minPoints,
		DefaultWindow:    7,
		Now:              func() time.Time { return today },
	})
}

func constantRequest() domain.ForecastRequest {
	return domain.ForecastRequest{
		Item:         domain.MenuItem(feijoadaID),
		StartDate:    day("2024-03-25"),
		EndDate:      day("2024-03-29"),
		Method:       domain.MethodMovingAverage,
		MethodParams: map[string]any{"window": 3},
	}
}

func TestGenerateForecast_ConstantDemandMovingAverage(t *testing.T) {
	repo := newRepo()
	seedDaily(t, repo, domain.MenuItem(feijoadaID), day("2024-03-10"), []int{10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10}, domain.SaleContext{})
	svc := newForecastService(repo, nil, 5)

	fc, err := svc.GenerateForecast(context.Background(), constantRequest())
	if err != nil {
		t.Fatalf("GenerateForecast: %v", err)
	}
	if fc.ID == uuid.Nil || fc.Status != domain.ForecastPersisted {
		t.Fatalf("forecast not persisted: %+v", fc)
	}
	if len(fc.Predictions) != 5 {
		t.Fatalf("want 5 predictions, got %v", fc.Predictions)
	}
	for d, v := range fc.Predictions {
		if v != 10 {
			t.Fatalf("prediction %s=%d, want 10", d, v)
		}
	}
	if fc.Confidence != 1.0 {
		t.Fatalf("confidence=%v, want 1", fc.Confidence)
	}
	if fc.Method != domain.MethodMovingAverage {
		t.Fatalf("method=%s", fc.Method)
	}
	if fc.Parameters["use_seasonality"] != false || fc.Parameters["window"] != 3 || fc.Parameters["horizon"] != 5 {
		t.Fatalf("parameters snapshot: %v", fc.Parameters)
	}
	if mp, ok := fc.Parameters["method_params"].(map[string]any); !ok || mp["window"] != 3 {
		t.Fatalf("method_params not captured: %v", fc.Parameters["method_params"])
	}

	stored, err := svc.GetForecast(context.Background(), fc.ID)
	if err != nil {
		t.Fatalf("GetForecast: %v", err)
	}
	if stored.Predictions["2024-03-25"] != 10 || stored.Predictions["2024-03-29"] != 10 {
		t.Fatalf("stored predictions: %v", stored.Predictions)
	}
}

func TestGenerateForecast_LinearTrend(t *testing.T) {
	repo := newRepo()
	seedDaily(t, repo, domain.MenuItem(feijoadaID), day("2024-03-19"), []int{10, 20, 30, 40, 50}, domain.SaleContext{})
	svc := newForecastService(repo, nil, 5)

	fc, err := svc.GenerateForecast(context.Background(), domain.ForecastRequest{
		Item:      domain.MenuItem(feijoadaID),
		StartDate: day("2024-03-25"),
		EndDate:   day("2024-03-27"),
		Method:    domain.MethodLinearRegression,
	})
	if err != nil {
		t.Fatalf("GenerateForecast: %v", err)
	}
	want := map[string]int{"2024-03-25": 60, "2024-03-26": 70, "2024-03-27": 80}
	for d, v := range want {
		if fc.Predictions[d] != v {
			t.Fatalf("prediction %s=%d, want %d (all=%v)", d, fc.Predictions[d], v, fc.Predictions)
		}
	}
	if fc.Confidence < 0.99 {
		t.Fatalf("confidence=%v, want >= 0.99", fc.Confidence)
	}
}

func TestGenerateForecast_PredictionsNeverNegative(t *testing.T) {
	repo := newRepo()
	seedDaily(t, repo, domain.MenuItem(feijoadaID), day("2024-03-19"), []int{50, 40, 30, 20, 10}, domain.SaleContext{})
	svc := newForecastService(repo, nil, 5)

	fc, err := svc.GenerateForecast(context.Background(), domain.ForecastRequest{
		Item:      domain.MenuItem(feijoadaID),
		StartDate: day("2024-03-25"),
		EndDate:   day("2024-03-27"),
		Method:    domain.MethodLinearRegression,
	})
	if err != nil {
		t.Fatalf("GenerateForecast: %v", err)
	}
	for d, v := range fc.Predictions {
		if v < 0 {
			t.Fatalf("negative prediction %s=%d", d, v)
		}
	}
}

func TestGenerateForecast_RejectsBadRange(t *testing.T) {
	repo := newRepo()
	seedDaily(t, repo, domain.MenuItem(feijoadaID), day("2024-03-10"), []int{10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10}, domain.SaleContext{})
	svc := newForecastService(repo, nil, 5)

	for _, end := range []string{"2024-03-25", "2024-03-20"} {
		req := constantRequest()
		req.EndDate = day(end)
		_, err := svc.GenerateForecast(context.Background(), req)
		assertKind(t, err, domain.KindValidation)
	}
	if repo.ForecastCount() != 0 {
		t.Fatalf("rejected requests must not persist")
	}
}

func TestGenerateForecast_InsufficientHistory(t *testing.T) {
	repo := newRepo()
	seedDaily(t, repo, domain.MenuItem(feijoadaID), day("2024-03-21"), []int{10, 12, 14}, domain.SaleContext{})
	// outside the sampling window
	seedDaily(t, repo, domain.MenuItem(feijoadaID), day("2024-01-01"), []int{10, 10, 10, 10, 10}, domain.SaleContext{})
	svc := newForecastService(repo, nil, 5)

	_, err := svc.GenerateForecast(context.Background(), constantRequest())
	assertKind(t, err, domain.KindInsufficientHistory)
	if repo.ForecastCount() != 0 {
		t.Fatalf("failed forecast must not persist")
	}
}

func TestGenerateForecast_DegenerateSeasonality(t *testing.T) {
	repo := newRepo()
	seedDaily(t, repo, domain.MenuItem(feijoadaID), day("2024-03-15"), []int{10, 10, 10, 10, 10, 10, 10, 10, 10}, domain.SaleContext{})
	// Wednesday, matches 2024-03-20
	repo.PutFactor(domain.SeasonalFactor{Weekday: intPtr(2), Multiplier: 0})
	svc := newForecastService(repo, nil, 5)

	req := constantRequest()
	req.UseSeasonality = true
	_, err := svc.GenerateForecast(context.Background(), req)
	assertKind(t, err, domain.KindDegenerateSeasonality)
	if repo.ForecastCount() != 0 {
		t.Fatalf("failed forecast must not persist")
	}
}

func TestGenerateForecast_SeasonalityRoundTrip(t *testing.T) {
	repo := newRepo()
	item := domain.MenuItem(feijoadaID)
	seedDaily(t, repo, item, day("2024-03-18"), []int{100}, domain.SaleContext{}) // Monday
	seedDaily(t, repo, item, day("2024-03-23"), []int{150}, domain.SaleContext{}) // Saturday
	repo.PutFactor(domain.SeasonalFactor{Weekday: intPtr(5), Multiplier: 1.5})
	repo.PutFactor(domain.SeasonalFactor{Weekday: intPtr(0), Multiplier: 1.0})
	svc := newForecastService(repo, nil, 2)

	fc, err := svc.GenerateForecast(context.Background(), domain.ForecastRequest{
		Item:           item,
		StartDate:      day("2024-03-25"),
		EndDate:        day("2024-03-30"),
		Method:         domain.MethodMovingAverage,
		UseSeasonality: true,
		MethodParams:   map[string]any{"window": 2},
	})
	if err != nil {
		t.Fatalf("GenerateForecast: %v", err)
	}
	if fc.Predictions["2024-03-25"] != 100 {
		t.Fatalf("monday=%d, want 100", fc.Predictions["2024-03-25"])
	}
	if fc.Predictions["2024-03-30"] != 150 {
		t.Fatalf("saturday=%d, want 150", fc.Predictions["2024-03-30"])
	}
	if fc.Predictions["2024-03-27"] != 100 {
		t.Fatalf("unmatched weekday=%d, want 100", fc.Predictions["2024-03-27"])
	}
	if snap, ok := fc.Parameters["factors"].([]map[string]any); !ok || len(snap) != 2 {
		t.Fatalf("factor snapshot: %v", fc.Parameters["factors"])
	}
}

func TestGenerateForecast_EventFactorOnForecastDate(t *testing.T) {
	repo := newRepo()
	seedDaily(t, repo, domain.MenuItem(feijoadaID), day("2024-03-15"), []int{10, 10, 10, 10, 10, 10, 10, 10, 10}, domain.SaleContext{})
	repo.PutFactor(domain.SeasonalFactor{EventLabel: strPtr("festival"), Multiplier: 2})
	svc := newForecastService(repo, nil, 5)

	req := constantRequest()
	req.UseSeasonality = true
	req.Events = map[string]string{"2024-03-27": "festival"}
	fc, err := svc.GenerateForecast(context.Background(), req)
	if err != nil {
		t.Fatalf("GenerateForecast: %v", err)
	}
	if fc.Predictions["2024-03-27"] != 20 || fc.Predictions["2024-03-26"] != 10 {
		t.Fatalf("event factor not applied: %v", fc.Predictions)
	}
}

func TestGenerateForecast_PeriodOfDayFiltersHistory(t *testing.T) {
	repo := newRepo()
	item := domain.MenuItem(feijoadaID)
	seedDaily(t, repo, item, day("2024-03-15"), []int{10, 10, 10, 10, 10, 10, 10, 10, 10}, domain.SaleContext{PeriodOfDay: "lunch"})
	seedDaily(t, repo, item, day("2024-03-15"), []int{100, 100, 100, 100, 100, 100, 100, 100, 100}, domain.SaleContext{PeriodOfDay: "dinner"})
	svc := newForecastService(repo, nil, 5)

	req := constantRequest()
	req.PeriodOfDay = "lunch"
	fc, err := svc.GenerateForecast(context.Background(), req)
	if err != nil {
		t.Fatalf("GenerateForecast: %v", err)
	}
	if fc.Predictions["2024-03-25"] != 10 {
		t.Fatalf("lunch forecast=%d, want 10", fc.Predictions["2024-03-25"])
	}

	fc, err = svc.GenerateForecast(context.Background(), constantRequest())
	if err != nil {
		t.Fatalf("GenerateForecast: %v", err)
	}
	if fc.Predictions["2024-03-25"] != 110 {
		t.Fatalf("whole-day forecast=%d, want 110", fc.Predictions["2024-03-25"])
	}
}

func TestGenerateForecast_MovingAverageShortHistoryIsPadded(t *testing.T) {
	repo := newRepo()
	seedDaily(t, repo, domain.MenuItem(feijoadaID), day("2024-03-17"), []int{8, 9, 10, 11, 12}, domain.SaleContext{})
	svc := newForecastService(repo, nil, 5)

	req := constantRequest()
	req.MethodParams = nil // default window 7 exceeds the 5 points
	fc, err := svc.GenerateForecast(context.Background(), req)
	if err != nil {
		t.Fatalf("GenerateForecast: %v", err)
	}
	if len(fc.Predictions) != 5 {
		t.Fatalf("want 5 predictions, got %v", fc.Predictions)
	}
	for d, v := range fc.Predictions {
		if v != 12 {
			t.Fatalf("prediction %s=%d, want last value 12", d, v)
		}
	}
	if fc.Confidence != 0.5 {
		t.Fatalf("confidence=%v, want 0.5", fc.Confidence)
	}
}

func TestGenerateForecast_MethodResolution(t *testing.T) {
	repo := newRepo()
	seedDaily(t, repo, domain.MenuItem(feijoadaID), day("2024-03-10"), []int{10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10}, domain.SaleContext{})
	svc := newForecastService(repo, nil, 5)

	req := constantRequest()
	req.Method = "prophet"
	_, err := svc.GenerateForecast(context.Background(), req)
	assertKind(t, err, domain.KindValidation)

	req.UseSeasonality = true
	fc, err := svc.GenerateForecast(context.Background(), req)
	if err != nil {
		t.Fatalf("unknown method with seasonality: %v", err)
	}
	if fc.Method != domain.MethodSeasonalityHybrid {
		t.Fatalf("method=%s, want seasonality_hybrid", fc.Method)
	}
	if fc.Predictions["2024-03-26"] != 10 {
		t.Fatalf("hybrid prediction=%d", fc.Predictions["2024-03-26"])
	}

	req = constantRequest()
	req.Method = domain.MethodSeasonalityHybrid
	fc, err = svc.GenerateForecast(context.Background(), req)
	if err != nil {
		t.Fatalf("hybrid without seasonality: %v", err)
	}
	if fc.Method != domain.MethodSeasonalityHybrid {
		t.Fatalf("method=%s", fc.Method)
	}
}

func TestGenerateForecast_BadMethodParams(t *testing.T) {
	repo := newRepo()
	svc := newForecastService(repo, nil, 5)

	for _, params := range []map[string]any{
		{"window": "three"},
		{"window": 0},
		{"window": 2.5},
		{"history_days": -1},
	} {
		req := constantRequest()
		req.MethodParams = params
		_, err := svc.GenerateForecast(context.Background(), req)
		assertKind(t, err, domain.KindValidation)
	}

	req := constantRequest()
	req.MethodParams = map[string]any{"window": float64(3)}
	_, err := svc.GenerateForecast(context.Background(), req)
	// JSON numbers are accepted; the empty store then fails on history
	assertKind(t, err, domain.KindInsufficientHistory)
}

func TestGenerateForecast_UnknownItem(t *testing.T) {
	svc := newForecastService(newRepo(), nil, 5)
	req := constantRequest()
	req.Item = domain.Dish(99)
	_, err := svc.GenerateForecast(context.Background(), req)
	assertKind(t, err, domain.KindNotFound)
}

func TestGenerateForecast_PublishesEvent(t *testing.T) {
	repo := newRepo()
	seedDaily(t, repo, domain.MenuItem(feijoadaID), day("2024-03-10"), []int{10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10}, domain.SaleContext{})
	pub := &recordingPublisher{}
	svc := newForecastService(repo, pub, 5)

	fc, err := svc.GenerateForecast(context.Background(), constantRequest())
	if err != nil {
		t.Fatalf("GenerateForecast: %v", err)
	}
	svc.WaitBackground()

	got := pub.published()
	if len(got) != 1 {
		t.Fatalf("want 1 event, got %d", len(got))
	}
	if got[0].ForecastID != fc.ID.String() || got[0].ItemKind != "menu_item" || got[0].ItemID != feijoadaID {
		t.Fatalf("unexpected event: %+v", got[0])
	}
}

func TestGenerateForecast_PublishFailureIsNotFatal(t *testing.T) {
	repo := newRepo()
	seedDaily(t, repo, domain.MenuItem(feijoadaID), day("2024-03-10"), []int{10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10}, domain.SaleContext{})
	svc := newForecastService(repo, &recordingPublisher{err: errBroker}, 5)

	if _, err := svc.GenerateForecast(context.Background(), constantRequest()); err != nil {
		t.Fatalf("publish failure leaked: %v", err)
	}
	svc.WaitBackground()
	if repo.ForecastCount() != 1 {
		t.Fatalf("forecast should still be persisted")
	}
}

func TestGenerateForecast_CancelledRequestDoesNotPersist(t *testing.T) {
	repo := newRepo()
	seedDaily(t, repo, domain.MenuItem(feijoadaID), day("2024-03-10"), []int{10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10}, domain.SaleContext{})
	svc := newForecastService(repo, nil, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.GenerateForecast(ctx, constantRequest()); err == nil {
		t.Fatalf("cancelled request should fail")
	}
	if repo.ForecastCount() != 0 {
		t.Fatalf("cancelled request must not persist")
	}
}

func TestListForecasts_FiltersByMethod(t *testing.T) {
	repo := newRepo()
	seedDaily(t, repo, domain.MenuItem(feijoadaID), day("2024-03-10"), []int{10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10}, domain.SaleContext{})
	svc := newForecastService(repo, nil, 5)

	if _, err := svc.GenerateForecast(context.Background(), constantRequest()); err != nil {
		t.Fatalf("GenerateForecast: %v", err)
	}
	req := constantRequest()
	req.Method = domain.MethodLinearRegression
	if _, err := svc.GenerateForecast(context.Background(), req); err != nil {
		t.Fatalf("GenerateForecast: %v", err)
	}

	page, err := svc.ListForecasts(context.Background(), domain.ForecastFilter{Method: domain.MethodLinearRegression}, domain.Pagination{})
	if err != nil {
		t.Fatalf("ListForecasts: %v", err)
	}
	if page.Total != 1 || page.Items[0].Method != domain.MethodLinearRegression {
		t.Fatalf("unexpected page: %+v", page)
	}
	if page.PageSize != domain.DefaultPageSize {
		t.Fatalf("page size=%d", page.PageSize)
	}

	_, err = svc.GetForecast(context.Background(), uuid.New())
	assertKind(t, err, domain.KindNotFound)
}

func TestGenerateForecast_ConfidenceStoredToFourDecimals(t *testing.T) {
	repo := newRepo()
	seedDaily(t, repo, domain.MenuItem(feijoadaID), day("2024-03-17"), []int{7, 3, 9, 4, 8, 2, 10}, domain.SaleContext{})
	svc := newForecastService(repo, nil, 5)

	fc, err := svc.GenerateForecast(context.Background(), constantRequest())
	if err != nil {
		t.Fatalf("GenerateForecast: %v", err)
	}
	if fc.Confidence <= 0 || fc.Confidence >= 1 {
		t.Fatalf("confidence=%v, want within (0, 1)", fc.Confidence)
	}
	if fc.Confidence != math.Round(fc.Confidence*1e4)/1e4 {
		t.Fatalf("confidence=%v has more than 4 decimals", fc.Confidence)
	}
}
