package forecast

import (
	"math"

	"github.com/kitchenops/backend/pkg/utils"
)

// LinearRegression fits y = m*x + b by ordinary least squares over
// x = 0..n-1 and extends the line horizon steps, clipping negatives to 0.
// Confidence is R² clipped to [0, 1]; a flat series has confidence 0.
func LinearRegression(series []float64, horizon int) Result {
	n := len(series)
	extended := make([]float64, n, n+horizon)
	copy(extended, series)

	if n < 3 {
		last := 0.0
		if n > 0 {
			last = series[n-1]
		}
		for i := 0; i < horizon; i++ {
			extended = append(extended, last)
		}
		return Result{Extended: extended, Confidence: 0.3}
	}

	m, b := fitLine(series)
	for k := 0; k < horizon; k++ {
		extended = append(extended, math.Max(0, m*float64(n+k)+b))
	}
	return Result{Extended: extended, Confidence: rSquared(series, m, b)}
}

func fitLine(y []float64) (m, b float64) {
	n := float64(len(y))
	var sx, sy, sxy, sxx float64
	for i, v := range y {
		x := float64(i)
		sx += x
		sy += v
		sxy += x * v
		sxx += x * x
	}
	den := n*sxx - sx*sx
	if den != 0 {
		m = (n*sxy - sx*sy) / den
	}
	b = (sy - m*sx) / n
	return m, b
}

func rSquared(y []float64, m, b float64) float64 {
	mean := utils.Mean(y)
	var ssRes, ssTot float64
	for i, v := range y {
		fit := m*float64(i) + b
		ssRes += (v - fit) * (v - fit)
		ssTot += (v - mean) * (v - mean)
	}
	if ssTot == 0 {
		return 0
	}
	return utils.Clamp(1-ssRes/ssTot, 0, 1)
}
