package service

import (
	"sort"
	"time"

	"github.com/kitchenops/backend/internal/domain"
)

// DailyPoint is the summed quantity of one item on one calendar date
type DailyPoint struct {
	Date     time.Time
	Quantity float64
	// EventLabel is the smallest non-empty label among the day's records,
	// so the choice does not depend on record order
	EventLabel string
}

// Aggregate sums quantities per date and returns the days in ascending order.
// Missing calendar days are not filled in.
func Aggregate(records []domain.SalesRecord) []DailyPoint {
	byDate := make(map[time.Time]*DailyPoint)
	for _, rec := range records {
		d := domain.DateOf(rec.Date)
		p, ok := byDate[d]
		if !ok {
			p = &DailyPoint{Date: d}
			byDate[d] = p
		}
		p.Quantity += float64(rec.Quantity)
		if rec.EventLabel != "" && (p.EventLabel == "" || rec.EventLabel < p.EventLabel) {
			p.EventLabel = rec.EventLabel
		}
	}

	out := make([]DailyPoint, 0, len(byDate))
	for _, p := range byDate {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Quantities projects the points onto their quantity series
func Quantities(points []DailyPoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Quantity
	}
	return out
}
