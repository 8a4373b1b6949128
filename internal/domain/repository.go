package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SalesRepository is the append-only sales history store
type SalesRepository interface {
	// InsertSale persists one record after PrepareSale
	InsertSale(ctx context.Context, rec *SalesRecord) error

	// InsertSales persists a batch of prepared records in one round trip
	InsertSales(ctx context.Context, recs []*SalesRecord) (int, error)

	// GetSale fetches one record by id
	GetSale(ctx context.Context, id uuid.UUID) (SalesRecord, error)

	// DeleteSale removes a record; corrections are delete + re-insert
	DeleteSale(ctx context.Context, id uuid.UUID) error

	// SalesByItemBetween returns the item's records in [from, to] ordered by date ascending
	SalesByItemBetween(ctx context.Context, item ItemRef, from, to time.Time) ([]SalesRecord, error)

	// ListSales pages through filtered records ordered by date descending
	ListSales(ctx context.Context, filter SalesFilter, page Pagination) (Page[SalesRecord], error)

	// CountSalesSince counts records dated on or after from
	CountSalesSince(ctx context.Context, from time.Time) (int, error)
}

// FactorRepository stores seasonal factors
type FactorRepository interface {
	CreateFactor(ctx context.Context, f *SeasonalFactor) error
	UpdateFactor(ctx context.Context, f *SeasonalFactor) error
	DeleteFactor(ctx context.Context, id uuid.UUID) error
	GetFactor(ctx context.Context, id uuid.UUID) (SeasonalFactor, error)
	ListFactors(ctx context.Context, filter FactorFilter) ([]SeasonalFactor, error)

	// FactorsFor returns global factors plus those scoped to exactly item,
	// and category-scoped ones when categoryID is given
	FactorsFor(ctx context.Context, item ItemRef, categoryID *int64) ([]SeasonalFactor, error)
}

// ForecastRepository stores forecast records; writes happen once
type ForecastRepository interface {
	SaveForecast(ctx context.Context, fc *Forecast) error
	GetForecast(ctx context.Context, id uuid.UUID) (Forecast, error)
	ListForecasts(ctx context.Context, filter ForecastFilter, page Pagination) (Page[Forecast], error)
}

// Catalog resolves items owned by the menu/dish modules
type Catalog interface {
	MenuItemExists(ctx context.Context, id int64) (bool, error)
	DishExists(ctx context.Context, id int64) (bool, error)
	MenuItemName(ctx context.Context, id int64) (string, error)
	DishName(ctx context.Context, id int64) (string, error)
}

// Repository bundles every store the core consumes.
// The domain defines the interface; adapters live under internal/repository.
type Repository interface {
	SalesRepository
	FactorRepository
	ForecastRepository
	Catalog

	// Health checks storage connectivity
	Health(ctx context.Context) error
}

// ItemExists dispatches on the reference kind
func ItemExists(ctx context.Context, c Catalog, item ItemRef) (bool, error) {
	if item.Kind == ItemDish {
		return c.DishExists(ctx, item.ID)
	}
	return c.MenuItemExists(ctx, item.ID)
}

// ItemName dispatches on the reference kind
func ItemName(ctx context.Context, c Catalog, item ItemRef) (string, error) {
	if item.Kind == ItemDish {
		return c.DishName(ctx, item.ID)
	}
	return c.MenuItemName(ctx, item.ID)
}
