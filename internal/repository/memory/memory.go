package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kitchenops/backend/internal/domain"
)

type catalogItem struct {
	name string
}

// Repository implements domain.Repository in process memory.
// Used for demo mode when no database is configured, and by tests.
type Repository struct {
	mu        sync.RWMutex
	sales     map[uuid.UUID]domain.SalesRecord
	factors   map[uuid.UUID]domain.SeasonalFactor
	forecasts map[uuid.UUID]domain.Forecast
	menuItems map[int64]catalogItem
	dishes    map[int64]catalogItem

	now func() time.Time
}

// NewRepository creates an empty in-memory repository
func NewRepository() *Repository {
	return &Repository{
		sales:     make(map[uuid.UUID]domain.SalesRecord),
		factors:   make(map[uuid.UUID]domain.SeasonalFactor),
		forecasts: make(map[uuid.UUID]domain.Forecast),
		menuItems: make(map[int64]catalogItem),
		dishes:    make(map[int64]catalogItem),
		now:       time.Now,
	}
}

// AddMenuItem registers a catalog menu item
func (r *Repository) AddMenuItem(id int64, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.menuItems[id] = catalogItem{name: name}
}

// AddDish registers a catalog dish
func (r *Repository) AddDish(id int64, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dishes[id] = catalogItem{name: name}
}

// PutFactor stores a factor without validation. Lets tests and seeding
// reproduce legacy rows that predate the multiplier rule.
func (r *Repository) PutFactor(f domain.SeasonalFactor) uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	r.factors[f.ID] = f
	return f.ID
}

// ForecastCount returns the number of persisted forecasts
func (r *Repository) ForecastCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.forecasts)
}

// InsertSale stores a prepared record
func (r *Repository) InsertSale(ctx context.Context, rec *domain.SalesRecord) error {
	if err := domain.PrepareSale(rec); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now()
	}
	r.sales[rec.ID] = *rec
	return nil
}

// InsertSales stores a batch; it validates every record before writing any
func (r *Repository) InsertSales(ctx context.Context, recs []*domain.SalesRecord) (int, error) {
	for _, rec := range recs {
		if err := domain.PrepareSale(rec); err != nil {
			return 0, err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	for _, rec := range recs {
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		r.sales[rec.ID] = *rec
	}
	return len(recs), nil
}

// GetSale returns one record
func (r *Repository) GetSale(ctx context.Context, id uuid.UUID) (domain.SalesRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.sales[id]
	if !ok {
		return domain.SalesRecord{}, fmt.Errorf("memory: sale %s: %w", id, domain.ErrNotFound)
	}
	return rec, nil
}

// DeleteSale removes one record
func (r *Repository) DeleteSale(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sales[id]; !ok {
		return fmt.Errorf("memory: sale %s: %w", id, domain.ErrNotFound)
	}
	delete(r.sales, id)
	return nil
}

// SalesByItemBetween returns item records within [from, to], oldest first
func (r *Repository) SalesByItemBetween(ctx context.Context, item domain.ItemRef, from, to time.Time) ([]domain.SalesRecord, error) {
	f, t := domain.DateOf(from), domain.DateOf(to)
	out := r.filterSales(domain.SalesFilter{Item: &item, From: &f, To: &t})
	sort.Slice(out, func(i, j int) bool {
		switch {
		case !out[i].Date.Equal(out[j].Date):
			return out[i].Date.Before(out[j].Date)
		case !out[i].CreatedAt.Equal(out[j].CreatedAt):
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// ListSales pages through filtered records, newest first
func (r *Repository) ListSales(ctx context.Context, filter domain.SalesFilter, page domain.Pagination) (domain.Page[domain.SalesRecord], error) {
	out := r.filterSales(filter)
	sort.Slice(out, func(i, j int) bool {
		switch {
		case !out[i].Date.Equal(out[j].Date):
			return out[i].Date.After(out[j].Date)
		case !out[i].CreatedAt.Equal(out[j].CreatedAt):
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() > out[j].ID.String()
	})
	return domain.Paginate(out, page), nil
}

// CountSalesSince counts records dated on or after from
func (r *Repository) CountSalesSince(ctx context.Context, from time.Time) (int, error) {
	f := domain.DateOf(from)
	return len(r.filterSales(domain.SalesFilter{From: &f})), nil
}

func (r *Repository) filterSales(filter domain.SalesFilter) []domain.SalesRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.SalesRecord
	for _, rec := range r.sales {
		if filter.Match(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// CreateFactor stores a new factor
func (r *Repository) CreateFactor(ctx context.Context, f *domain.SeasonalFactor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	now := r.now()
	f.CreatedAt, f.UpdatedAt = now, now
	r.factors[f.ID] = *f
	return nil
}

// UpdateFactor replaces an existing factor
func (r *Repository) UpdateFactor(ctx context.Context, f *domain.SeasonalFactor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, ok := r.factors[f.ID]
	if !ok {
		return fmt.Errorf("memory: factor %s: %w", f.ID, domain.ErrNotFound)
	}
	f.CreatedAt = prev.CreatedAt
	f.UpdatedAt = r.now()
	r.factors[f.ID] = *f
	return nil
}

// DeleteFactor removes a factor
func (r *Repository) DeleteFactor(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factors[id]; !ok {
		return fmt.Errorf("memory: factor %s: %w", id, domain.ErrNotFound)
	}
	delete(r.factors, id)
	return nil
}

// GetFactor returns one factor
func (r *Repository) GetFactor(ctx context.Context, id uuid.UUID) (domain.SeasonalFactor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factors[id]
	if !ok {
		return domain.SeasonalFactor{}, fmt.Errorf("memory: factor %s: %w", id, domain.ErrNotFound)
	}
	return f, nil
}

// ListFactors returns filtered factors ordered by creation time
func (r *Repository) ListFactors(ctx context.Context, filter domain.FactorFilter) ([]domain.SeasonalFactor, error) {
	return r.selectFactors(filter.Match), nil
}

// FactorsFor returns the factors whose scope covers item
func (r *Repository) FactorsFor(ctx context.Context, item domain.ItemRef, categoryID *int64) ([]domain.SeasonalFactor, error) {
	return r.selectFactors(func(f domain.SeasonalFactor) bool { return f.AppliesTo(item, categoryID) }), nil
}

func (r *Repository) selectFactors(keep func(domain.SeasonalFactor) bool) []domain.SeasonalFactor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.SeasonalFactor
	for _, f := range r.factors {
		if keep(f) {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// SaveForecast persists a forecast once
func (r *Repository) SaveForecast(ctx context.Context, fc *domain.Forecast) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if fc.ID == uuid.Nil {
		fc.ID = uuid.New()
	}
	if _, exists := r.forecasts[fc.ID]; exists {
		return fmt.Errorf("memory: forecast %s already persisted", fc.ID)
	}
	fc.CreatedAt = r.now()
	fc.Status = domain.ForecastPersisted
	r.forecasts[fc.ID] = *fc
	return nil
}

// GetForecast returns one forecast
func (r *Repository) GetForecast(ctx context.Context, id uuid.UUID) (domain.Forecast, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fc, ok := r.forecasts[id]
	if !ok {
		return domain.Forecast{}, fmt.Errorf("memory: forecast %s: %w", id, domain.ErrNotFound)
	}
	return fc, nil
}

// ListForecasts pages through forecasts, newest first
func (r *Repository) ListForecasts(ctx context.Context, filter domain.ForecastFilter, page domain.Pagination) (domain.Page[domain.Forecast], error) {
	r.mu.RLock()
	var out []domain.Forecast
	for _, fc := range r.forecasts {
		if filter.Match(fc) {
			out = append(out, fc)
		}
	}
	r.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return domain.Paginate(out, page), nil
}

// MenuItemExists reports whether the menu item is registered
func (r *Repository) MenuItemExists(ctx context.Context, id int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.menuItems[id]
	return ok, nil
}

// DishExists reports whether the dish is registered
func (r *Repository) DishExists(ctx context.Context, id int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.dishes[id]
	return ok, nil
}

// MenuItemName returns the registered name
func (r *Repository) MenuItemName(ctx context.Context, id int64) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	it, ok := r.menuItems[id]
	if !ok {
		return "", fmt.Errorf("memory: menu item %d: %w", id, domain.ErrNotFound)
	}
	return it.name, nil
}

// DishName returns the registered name
func (r *Repository) DishName(ctx context.Context, id int64) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	it, ok := r.dishes[id]
	if !ok {
		return "", fmt.Errorf("memory: dish %d: %w", id, domain.ErrNotFound)
	}
	return it.name, nil
}

// Health always returns nil in memory mode
func (r *Repository) Health(ctx context.Context) error {
	return nil
}

var _ domain.Repository = (*Repository)(nil)
