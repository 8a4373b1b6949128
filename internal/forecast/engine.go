// Package forecast projects an ordered daily quantity series forward.
//
// Every method returns the input series extended with its projection and a
// heuristic confidence in [0, 1]. The functions are pure and allocation-only;
// callers own any I/O around them.
package forecast

import (
	"fmt"

	"github.com/kitchenops/backend/internal/domain"
)

const (
	// DefaultWindow is the moving-average window when none is given
	DefaultWindow = 7
	// DefaultHorizon is the projection length when none is given
	DefaultHorizon = 7
)

// Params are the method knobs
type Params struct {
	Window int
}

// Result is an extended series plus confidence
type Result struct {
	Extended   []float64
	Confidence float64
}

// Run dispatches to the algorithm behind method. The hybrid method is
// linear regression; seasonality is applied by the caller around it.
func Run(method domain.Method, series []float64, horizon int, p Params) (Result, error) {
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	switch method {
	case domain.MethodMovingAverage:
		return MovingAverage(series, horizon, p.Window), nil
	case domain.MethodLinearRegression, domain.MethodSeasonalityHybrid:
		return LinearRegression(series, horizon), nil
	}
	return Result{}, fmt.Errorf("%w: unknown forecast method %q", domain.ErrValidation, method)
}

// Future returns the horizon values that follow the historical part of an
// extended series. When the engine returned fewer values than expected the
// gap is filled with the last available value, or 0 when there is none.
func Future(extended []float64, n, horizon int) []float64 {
	out := make([]float64, 0, horizon)
	if n < len(extended) {
		out = append(out, extended[n:]...)
	}
	if len(out) > horizon {
		out = out[:horizon]
	}
	last := 0.0
	if len(out) > 0 {
		last = out[len(out)-1]
	} else if len(extended) > 0 {
		last = extended[len(extended)-1]
	}
	for len(out) < horizon {
		out = append(out, last)
	}
	return out
}
