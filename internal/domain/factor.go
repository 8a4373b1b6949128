package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SeasonalFactor is a multiplicative demand adjustment.
//
// Selectors (Month, Weekday, PeriodOfDay, EventLabel) decide which dates it
// matches; at least one is required and every set selector must agree with
// the date. Scope (MenuItemID, DishID, CategoryID) decides which items it
// applies to; at most one is set and none means global.
type SeasonalFactor struct {
	ID          uuid.UUID `json:"id"`
	Month       *int      `json:"month,omitempty"`
	Weekday     *int      `json:"weekday,omitempty"`
	PeriodOfDay *string   `json:"period_of_day,omitempty"`
	EventLabel  *string   `json:"event_label,omitempty"`
	MenuItemID  *int64    `json:"menu_item_id,omitempty"`
	DishID      *int64    `json:"dish_id,omitempty"`
	CategoryID  *int64    `json:"category_id,omitempty"`
	Multiplier  float64   `json:"multiplier"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate checks selector, scope and multiplier rules
func (f SeasonalFactor) Validate() error {
	if f.Month == nil && f.Weekday == nil && f.PeriodOfDay == nil && f.EventLabel == nil {
		return fmt.Errorf("%w: factor needs at least one selector", ErrValidation)
	}
	if f.Month != nil && (*f.Month < 1 || *f.Month > 12) {
		return fmt.Errorf("%w: month must be within 1..12", ErrValidation)
	}
	if f.Weekday != nil && (*f.Weekday < 0 || *f.Weekday > 6) {
		return fmt.Errorf("%w: weekday must be within 0..6", ErrValidation)
	}
	if f.PeriodOfDay != nil && *f.PeriodOfDay == "" {
		return fmt.Errorf("%w: period_of_day selector must not be empty", ErrValidation)
	}
	if f.EventLabel != nil && *f.EventLabel == "" {
		return fmt.Errorf("%w: event_label selector must not be empty", ErrValidation)
	}
	scopes := 0
	for _, s := range []*int64{f.MenuItemID, f.DishID, f.CategoryID} {
		if s != nil {
			scopes++
		}
	}
	if scopes > 1 {
		return fmt.Errorf("%w: factor may be scoped to at most one of menu item, dish, category", ErrValidation)
	}
	if !(f.Multiplier > 0) {
		return fmt.Errorf("%w: multiplier must be positive", ErrValidation)
	}
	return nil
}

// IsGlobal reports whether the factor has no scope
func (f SeasonalFactor) IsGlobal() bool {
	return f.MenuItemID == nil && f.DishID == nil && f.CategoryID == nil
}

// AppliesTo reports whether the factor's scope covers item. Category-scoped
// factors apply only when the caller passes the item's category explicitly.
func (f SeasonalFactor) AppliesTo(item ItemRef, categoryID *int64) bool {
	switch {
	case f.IsGlobal():
		return true
	case f.MenuItemID != nil:
		return item.Kind == ItemMenuItem && *f.MenuItemID == item.ID
	case f.DishID != nil:
		return item.Kind == ItemDish && *f.DishID == item.ID
	case f.CategoryID != nil:
		return categoryID != nil && *f.CategoryID == *categoryID
	}
	return false
}

// Matches reports whether every set selector agrees with the date, the
// period of day and the event label.
func (f SeasonalFactor) Matches(date time.Time, periodOfDay, eventLabel string) bool {
	if f.Month != nil && *f.Month != int(date.Month()) {
		return false
	}
	if f.Weekday != nil && *f.Weekday != Weekday(date) {
		return false
	}
	if f.PeriodOfDay != nil && *f.PeriodOfDay != periodOfDay {
		return false
	}
	if f.EventLabel != nil && *f.EventLabel != eventLabel {
		return false
	}
	return true
}

// FactorFilter narrows list_factors
type FactorFilter struct {
	Item       *ItemRef
	CategoryID *int64
	GlobalOnly bool
	Month      *int
	Weekday    *int
}

// Match reports whether f passes the filter
func (ff FactorFilter) Match(f SeasonalFactor) bool {
	if ff.GlobalOnly && !f.IsGlobal() {
		return false
	}
	if ff.Item != nil {
		id := ff.Item.ID
		switch ff.Item.Kind {
		case ItemMenuItem:
			if f.MenuItemID == nil || *f.MenuItemID != id {
				return false
			}
		case ItemDish:
			if f.DishID == nil || *f.DishID != id {
				return false
			}
		}
	}
	if ff.CategoryID != nil && (f.CategoryID == nil || *f.CategoryID != *ff.CategoryID) {
		return false
	}
	if ff.Month != nil && (f.Month == nil || *f.Month != *ff.Month) {
		return false
	}
	if ff.Weekday != nil && (f.Weekday == nil || *f.Weekday != *ff.Weekday) {
		return false
	}
	return true
}
