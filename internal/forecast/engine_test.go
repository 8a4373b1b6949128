package forecast

import (
	"errors"
	"math"
	"testing"

	"github.com/kitchenops/backend/internal/domain"
)

func TestMovingAverage_ConstantDemand(t *testing.T) {
	series := []float64{10, 10, 10, 10, 10, 10, 10}
	res := MovingAverage(series, 5, 3)
	if len(res.Extended) != 12 {
		t.Fatalf("want 12 values, got %d", len(res.Extended))
	}
	for i, v := range res.Extended {
		if v != 10 {
			t.Fatalf("value %d = %v, want 10", i, v)
		}
	}
	if res.Confidence != 1.0 {
		t.Fatalf("confidence = %v, want 1.0", res.Confidence)
	}
}

func TestMovingAverage_ExtensionIsLastWindowMean(t *testing.T) {
	series := []float64{3, 8, 1, 9, 4, 7, 2, 6}
	w := 3
	res := MovingAverage(series, 4, w)
	want := (7.0 + 2.0 + 6.0) / 3.0
	for i := len(series); i < len(res.Extended); i++ {
		if res.Extended[i] != want {
			t.Fatalf("extended[%d] = %v, want exactly %v", i, res.Extended[i], want)
		}
	}
	for i := range series {
		if res.Extended[i] != series[i] {
			t.Fatalf("history altered at %d", i)
		}
	}
}

func TestMovingAverage_InsufficientHistoryIsNotExtended(t *testing.T) {
	series := []float64{4, 5, 6}
	res := MovingAverage(series, 5, 7)
	if len(res.Extended) != 3 || res.Confidence != 0.5 {
		t.Fatalf("degenerate branch: got len=%d conf=%v", len(res.Extended), res.Confidence)
	}
}

func TestMovingAverage_ConfidenceFromVariation(t *testing.T) {
	// mean 5, population stdev 2 => cv 0.4
	series := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	res := MovingAverage(series, 1, 2)
	if math.Abs(res.Confidence-0.6) > 1e-12 {
		t.Fatalf("confidence = %v, want 0.6", res.Confidence)
	}

	zeros := []float64{0, 0, 0}
	if got := MovingAverage(zeros, 1, 2).Confidence; got != 0.5 {
		t.Fatalf("zero mean confidence = %v, want 0.5", got)
	}
	if got := MovingAverage([]float64{5}, 1, 1).Confidence; got != 0.5 {
		t.Fatalf("single point confidence = %v, want 0.5", got)
	}
	wild := []float64{0, 0, 0, 100}
	if got := MovingAverage(wild, 1, 2).Confidence; got != 0 {
		t.Fatalf("cv above 1 should clip to 0, got %v", got)
	}
}

func TestLinearRegression_Trend(t *testing.T) {
	res := LinearRegression([]float64{10, 20, 30, 40, 50}, 3)
	want := []float64{60, 70, 80}
	for i, w := range want {
		if math.Abs(res.Extended[5+i]-w) > 1e-6 {
			t.Fatalf("future[%d] = %v, want %v", i, res.Extended[5+i], w)
		}
	}
	if res.Confidence < 0.99 {
		t.Fatalf("confidence = %v, want >= 0.99", res.Confidence)
	}
}

func TestLinearRegression_NoiseFreeLine(t *testing.T) {
	a, b := -1.5, 40.0
	var series []float64
	for i := 0; i < 12; i++ {
		series = append(series, a*float64(i)+b)
	}
	res := LinearRegression(series, 6)
	if math.Abs(res.Confidence-1) > 1e-9 {
		t.Fatalf("confidence = %v, want 1", res.Confidence)
	}
	for k := 0; k < 6; k++ {
		want := a*float64(12+k) + b
		if math.Abs(res.Extended[12+k]-want) > 1e-6 {
			t.Fatalf("point %d = %v, want %v", k, res.Extended[12+k], want)
		}
	}
}

func TestLinearRegression_ClipsNegative(t *testing.T) {
	res := LinearRegression([]float64{30, 20, 10}, 5)
	for _, v := range res.Extended[3:] {
		if v < 0 {
			t.Fatalf("negative prediction %v", v)
		}
	}
	if res.Extended[len(res.Extended)-1] != 0 {
		t.Fatalf("far future should clip to 0, got %v", res.Extended[len(res.Extended)-1])
	}
}

func TestLinearRegression_ShortAndFlat(t *testing.T) {
	res := LinearRegression([]float64{4, 9}, 3)
	if res.Confidence != 0.3 || len(res.Extended) != 5 || res.Extended[4] != 9 {
		t.Fatalf("short series: %+v", res)
	}
	flat := LinearRegression([]float64{6, 6, 6, 6}, 2)
	if flat.Confidence != 0 {
		t.Fatalf("flat series confidence = %v, want 0", flat.Confidence)
	}
	if flat.Extended[4] != 6 {
		t.Fatalf("flat series should continue at 6, got %v", flat.Extended[4])
	}
}

func TestRun_Dispatch(t *testing.T) {
	series := []float64{1, 2, 3, 4, 5}
	hybrid, err := Run(domain.MethodSeasonalityHybrid, series, 2, Params{})
	if err != nil {
		t.Fatalf("hybrid: %v", err)
	}
	lr := LinearRegression(series, 2)
	if hybrid.Extended[6] != lr.Extended[6] || hybrid.Confidence != lr.Confidence {
		t.Fatalf("hybrid should equal linear regression")
	}
	if _, err := Run("arima", series, 2, Params{}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("unknown method should be VALIDATION, got %v", err)
	}
}

func TestFuture_PadsWithLastValue(t *testing.T) {
	got := Future([]float64{1, 2, 3}, 3, 4)
	for _, v := range got {
		if v != 3 {
			t.Fatalf("pad should repeat last value: %v", got)
		}
	}
	got = Future([]float64{1, 2, 7, 8}, 2, 4)
	if got[0] != 7 || got[1] != 8 || got[2] != 8 || got[3] != 8 {
		t.Fatalf("unexpected future %v", got)
	}
	if got := Future(nil, 0, 2); got[0] != 0 || got[1] != 0 {
		t.Fatalf("empty extended should pad zeros: %v", got)
	}
}
