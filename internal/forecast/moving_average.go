package forecast

import (
	"github.com/kitchenops/backend/pkg/utils"
)

// MovingAverage extends series with horizon copies of the mean of its last
// window values.
//
// With fewer points than the window the series is returned unextended with
// confidence 0.5; callers pad the missing days themselves.
func MovingAverage(series []float64, horizon, window int) Result {
	if window <= 0 {
		window = DefaultWindow
	}
	n := len(series)
	if n < window {
		return Result{Extended: append([]float64(nil), series...), Confidence: 0.5}
	}

	last := utils.Mean(series[n-window:])
	extended := make([]float64, n, n+horizon)
	copy(extended, series)
	for i := 0; i < horizon; i++ {
		extended = append(extended, last)
	}
	return Result{Extended: extended, Confidence: variationConfidence(series)}
}

// variationConfidence is 1 - coefficient of variation, clipped to [0, 1].
func variationConfidence(series []float64) float64 {
	if len(series) <= 1 {
		return 0.5
	}
	mu := utils.Mean(series)
	if mu <= 0 {
		return 0.5
	}
	cv := utils.StdDev(series) / mu
	return utils.Clamp(1-cv, 0, 1)
}
