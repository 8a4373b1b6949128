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

	"github.com/kitchenops/backend/internal/domain"
)

const forecastColumns = `
	id, created_at, start_date, end_date, menu_item_id, dish_id,
	method, parameters, predictions, confidence`

// SaveForecast inserts a forecast record. This is the commit boundary of a
// forecast job; nothing is written before it.
func (r *PostgresRepository) SaveForecast(ctx context.Context, fc *domain.Forecast) error {
	if fc.ID == uuid.Nil {
		fc.ID = uuid.New()
	}
	fc.CreatedAt = time.Now().UTC()
	menuItemID, dishID := fc.Item.Columns()

	query := `
		INSERT INTO demand_forecasts (` + forecastColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.pool.Exec(ctx, query,
		pgUUID(fc.ID), fc.CreatedAt, fc.StartDate, fc.EndDate, menuItemID, dishID,
		string(fc.Method), fc.Parameters, fc.Predictions, fc.Confidence,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save forecast: %w", err)
	}
	fc.Status = domain.ForecastPersisted
	return nil
}

// GetForecast fetches one forecast record
func (r *PostgresRepository) GetForecast(ctx context.Context, id uuid.UUID) (domain.Forecast, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+forecastColumns+` FROM demand_forecasts WHERE id = $1`, pgUUID(id))
	fc, err := scanForecast(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Forecast{}, fmt.Errorf("postgres: forecast %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Forecast{}, fmt.Errorf("postgres: failed to get forecast: %w", err)
	}
	return fc, nil
}

// ListForecasts pages through forecasts, newest first
func (r *PostgresRepository) ListForecasts(ctx context.Context, filter domain.ForecastFilter, page domain.Pagination) (domain.Page[domain.Forecast], error) {
	page = page.Normalize()

	var conds []string
	var args []any
	if filter.Item != nil {
		col := "menu_item_id"
		if filter.Item.Kind == domain.ItemDish {
			col = "dish_id"
		}
		args = append(args, filter.Item.ID)
		conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if filter.Method != "" {
		args = append(args, string(filter.Method))
		conds = append(conds, fmt.Sprintf("method = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM demand_forecasts`+where, args...).Scan(&total); err != nil {
		return domain.Page[domain.Forecast]{}, fmt.Errorf("postgres: failed to count forecasts: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM demand_forecasts%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		forecastColumns, where, len(args)+1, len(args)+2)
	rows, err := r.pool.Query(ctx, query, append(args, page.PageSize, page.Offset())...)
	if err != nil {
		return domain.Page[domain.Forecast]{}, fmt.Errorf("postgres: failed to query forecasts: %w", err)
	}
	defer rows.Close()

	var items []domain.Forecast
	for rows.Next() {
		fc, err := scanForecast(rows)
		if err != nil {
			return domain.Page[domain.Forecast]{}, fmt.Errorf("postgres: failed to scan forecast row: %w", err)
		}
		items = append(items, fc)
	}
	if err := rows.Err(); err != nil {
		return domain.Page[domain.Forecast]{}, fmt.Errorf("postgres: failed to iterate forecasts: %w", err)
	}
	return domain.Page[domain.Forecast]{Items: items, Total: total, Page: page.Page, PageSize: page.PageSize}, nil
}

func scanForecast(row pgx.Row) (domain.Forecast, error) {
	var (
		fc               domain.Forecast
		id               pgtype.UUID
		menuItemID, dish *int64
		method           string
	)
	err := row.Scan(
		&id, &fc.CreatedAt, &fc.StartDate, &fc.EndDate, &menuItemID, &dish,
		&method, &fc.Parameters, &fc.Predictions, &fc.Confidence,
	)
	if err != nil {
		return fc, err
	}
	fc.ID = uuid.UUID(id.Bytes)
	fc.Method = domain.Method(method)
	fc.Status = domain.ForecastPersisted
	fc.Item, err = domain.ItemRefFromColumns(menuItemID, dish)
	return fc, err
}
