package service

import (
	"context"
	"fmt"
	"time"

	"github.com/kitchenops/backend/internal/domain"
	"github.com/kitchenops/backend/pkg/utils"
)

// SeasonalityRegistry resolves the factors that may adjust an item's demand
type SeasonalityRegistry struct {
	repo domain.FactorRepository
}

// NewSeasonalityRegistry creates a registry over the factor store
func NewSeasonalityRegistry(repo domain.FactorRepository) *SeasonalityRegistry {
	return &SeasonalityRegistry{repo: repo}
}

// FactorsFor returns global factors plus those scoped to item (and to
// categoryID when given). Scopes are re-checked here so a loose store
// query can never leak a dish factor into a menu item forecast.
func (r *SeasonalityRegistry) FactorsFor(ctx context.Context, item domain.ItemRef, categoryID *int64) (FactorSet, error) {
	all, err := r.repo.FactorsFor(ctx, item, categoryID)
	if err != nil {
		return nil, internal("seasonality: factors_for", err)
	}
	out := make(FactorSet, 0, len(all))
	for _, f := range all {
		if f.AppliesTo(item, categoryID) {
			out = append(out, f)
		}
	}
	return out, nil
}

// FactorSet is the list of factors eligible for one item
type FactorSet []domain.SeasonalFactor

// Multiplier composes every matching factor multiplicatively; 1.0 when none match.
func (fs FactorSet) Multiplier(date time.Time, periodOfDay, eventLabel string) float64 {
	mu := 1.0
	for _, f := range fs {
		if f.Matches(date, periodOfDay, eventLabel) {
			mu *= f.Multiplier
		}
	}
	return mu
}

// Snapshot lists {id, multiplier} of each factor, for the forecast parameters
func (fs FactorSet) Snapshot() []map[string]any {
	out := make([]map[string]any, 0, len(fs))
	for _, f := range fs {
		out = append(out, map[string]any{"id": f.ID.String(), "multiplier": f.Multiplier})
	}
	return out
}

// Deseasonalize divides each day's quantity by its composed multiplier.
// A zero multiplier makes the factor set unusable.
func Deseasonalize(points []DailyPoint, fs FactorSet, periodOfDay string) ([]float64, error) {
	out := make([]float64, len(points))
	for i, p := range points {
		mu := fs.Multiplier(p.Date, periodOfDay, p.EventLabel)
		if mu == 0 {
			return nil, fmt.Errorf("%w: composed multiplier is zero on %s", domain.ErrDegenerateSeasonality, domain.FormatDate(p.Date))
		}
		out[i] = p.Quantity / mu
	}
	return out, nil
}

// Reseasonalize multiplies each predicted value by the multiplier of its
// date and rounds to a non-negative integer. With an empty factor set it
// only rounds. events maps ISO dates to event labels.
func Reseasonalize(dates []time.Time, predicted []float64, fs FactorSet, periodOfDay string, events map[string]string) map[string]int {
	out := make(map[string]int, len(dates))
	for i, d := range dates {
		key := domain.FormatDate(d)
		v := 0.0
		if i < len(predicted) {
			v = predicted[i]
		}
		out[key] = utils.NonNegativeInt(v * fs.Multiplier(d, periodOfDay, events[key]))
	}
	return out
}
