package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/kitchenops/backend/internal/domain"
)

// PostgresRepository implements domain.Repository
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Connect opens a pool and verifies connectivity
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: failed to ping: %w", err)
	}
	return pool, nil
}

// Health checks database connectivity
func (r *PostgresRepository) Health(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: health check failed: %w", err)
	}
	return nil
}

const salesColumns = `
	id, sale_date, menu_item_id, dish_id, quantity,
	unit_price::text, total_price::text, COALESCE(period_of_day, ''),
	weekday, week_of_month, month, is_holiday,
	COALESCE(event_label, ''), COALESCE(weather, ''), temperature, created_at`

var salesCopyColumns = []string{
	"id", "sale_date", "menu_item_id", "dish_id", "quantity",
	"unit_price", "total_price", "period_of_day",
	"weekday", "week_of_month", "month", "is_holiday",
	"event_label", "weather", "temperature", "created_at",
}

func salesRow(rec *domain.SalesRecord) []any {
	menuItemID, dishID := rec.Item.Columns()
	return []any{
		pgUUID(rec.ID), rec.Date, menuItemID, dishID, rec.Quantity,
		rec.UnitPrice.StringFixed(2), rec.TotalPrice.StringFixed(2), nullable(rec.PeriodOfDay),
		rec.Weekday, rec.WeekOfMonth, rec.Month, rec.IsHoliday,
		nullable(rec.EventLabel), nullable(rec.Weather), rec.Temperature, rec.CreatedAt,
	}
}

// InsertSale persists one sales record
func (r *PostgresRepository) InsertSale(ctx context.Context, rec *domain.SalesRecord) error {
	if err := domain.PrepareSale(rec); err != nil {
		return err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO sales_history (` + strings.Join(salesCopyColumns, ", ") + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	if _, err := r.pool.Exec(ctx, query, salesRow(rec)...); err != nil {
		return fmt.Errorf("postgres: failed to insert sale: %w", err)
	}
	return nil
}

// InsertSales bulk-loads prepared records with COPY
func (r *PostgresRepository) InsertSales(ctx context.Context, recs []*domain.SalesRecord) (int, error) {
	now := time.Now().UTC()
	for _, rec := range recs {
		if err := domain.PrepareSale(rec); err != nil {
			return 0, err
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
	}
	n, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"sales_history"},
		salesCopyColumns,
		pgx.CopyFromSlice(len(recs), func(i int) ([]any, error) {
			return salesRow(recs[i]), nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("postgres: failed to copy sales: %w", err)
	}
	return int(n), nil
}

// GetSale fetches one sales record
func (r *PostgresRepository) GetSale(ctx context.Context, id uuid.UUID) (domain.SalesRecord, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+salesColumns+` FROM sales_history WHERE id = $1`, pgUUID(id))
	rec, err := scanSale(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.SalesRecord{}, fmt.Errorf("postgres: sale %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.SalesRecord{}, fmt.Errorf("postgres: failed to get sale: %w", err)
	}
	return rec, nil
}

// DeleteSale removes one sales record
func (r *PostgresRepository) DeleteSale(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sales_history WHERE id = $1`, pgUUID(id))
	if err != nil {
		return fmt.Errorf("postgres: failed to delete sale: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: sale %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// SalesByItemBetween retrieves an item's history ordered by date ascending
func (r *PostgresRepository) SalesByItemBetween(ctx context.Context, item domain.ItemRef, from, to time.Time) ([]domain.SalesRecord, error) {
	where, args := salesWhere(domain.SalesFilter{Item: &item, From: &from, To: &to})
	query := `SELECT ` + salesColumns + ` FROM sales_history` + where + ` ORDER BY sale_date ASC, created_at ASC, id ASC`
	return r.querySales(ctx, query, args...)
}

// ListSales pages through filtered records, newest first
func (r *PostgresRepository) ListSales(ctx context.Context, filter domain.SalesFilter, page domain.Pagination) (domain.Page[domain.SalesRecord], error) {
	page = page.Normalize()
	where, args := salesWhere(filter)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sales_history`+where, args...).Scan(&total); err != nil {
		return domain.Page[domain.SalesRecord]{}, fmt.Errorf("postgres: failed to count sales: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM sales_history%s ORDER BY sale_date DESC, created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		salesColumns, where, len(args)+1, len(args)+2)
	items, err := r.querySales(ctx, query, append(args, page.PageSize, page.Offset())...)
	if err != nil {
		return domain.Page[domain.SalesRecord]{}, err
	}
	return domain.Page[domain.SalesRecord]{Items: items, Total: total, Page: page.Page, PageSize: page.PageSize}, nil
}

// CountSalesSince counts records dated on or after from
func (r *PostgresRepository) CountSalesSince(ctx context.Context, from time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sales_history WHERE sale_date >= $1`, domain.DateOf(from)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: failed to count sales: %w", err)
	}
	return count, nil
}

func (r *PostgresRepository) querySales(ctx context.Context, query string, args ...any) ([]domain.SalesRecord, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query sales: %w", err)
	}
	defer rows.Close()

	var results []domain.SalesRecord
	for rows.Next() {
		rec, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan sale row: %w", err)
		}
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to iterate sales: %w", err)
	}
	return results, nil
}

func salesWhere(f domain.SalesFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Item != nil {
		if f.Item.Kind == domain.ItemDish {
			add("dish_id = $%d", f.Item.ID)
		} else {
			add("menu_item_id = $%d", f.Item.ID)
		}
	}
	if f.From != nil {
		add("sale_date >= $%d", domain.DateOf(*f.From))
	}
	if f.To != nil {
		add("sale_date <= $%d", domain.DateOf(*f.To))
	}
	if f.PeriodOfDay != "" {
		add("period_of_day = $%d", f.PeriodOfDay)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanSale(row pgx.Row) (domain.SalesRecord, error) {
	var (
		rec              domain.SalesRecord
		id               pgtype.UUID
		menuItemID, dish *int64
		unitPrice, total string
	)
	err := row.Scan(
		&id, &rec.Date, &menuItemID, &dish, &rec.Quantity,
		&unitPrice, &total, &rec.PeriodOfDay,
		&rec.Weekday, &rec.WeekOfMonth, &rec.Month, &rec.IsHoliday,
		&rec.EventLabel, &rec.Weather, &rec.Temperature, &rec.CreatedAt,
	)
	if err != nil {
		return rec, err
	}
	rec.ID = uuid.UUID(id.Bytes)
	if rec.Item, err = domain.ItemRefFromColumns(menuItemID, dish); err != nil {
		return rec, err
	}
	if rec.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
		return rec, err
	}
	if rec.TotalPrice, err = decimal.NewFromString(total); err != nil {
		return rec, err
	}
	return rec, nil
}

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ domain.Repository = (*PostgresRepository)(nil)
