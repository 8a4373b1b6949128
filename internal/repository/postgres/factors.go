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

const factorColumns = `
	id, month, weekday, period_of_day, event_label,
	menu_item_id, dish_id, category_id, multiplier, description,
	created_at, updated_at`

// CreateFactor persists a new seasonal factor
func (r *PostgresRepository) CreateFactor(ctx context.Context, f *domain.SeasonalFactor) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	now := time.Now().UTC()
	f.CreatedAt, f.UpdatedAt = now, now

	query := `
		INSERT INTO seasonal_factors (` + factorColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.pool.Exec(ctx, query,
		pgUUID(f.ID), f.Month, f.Weekday, f.PeriodOfDay, f.EventLabel,
		f.MenuItemID, f.DishID, f.CategoryID, f.Multiplier, f.Description,
		f.CreatedAt, f.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to create factor: %w", err)
	}
	return nil
}

// UpdateFactor rewrites every mutable column of a factor
func (r *PostgresRepository) UpdateFactor(ctx context.Context, f *domain.SeasonalFactor) error {
	f.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE seasonal_factors SET
			month = $2, weekday = $3, period_of_day = $4, event_label = $5,
			menu_item_id = $6, dish_id = $7, category_id = $8,
			multiplier = $9, description = $10, updated_at = $11
		WHERE id = $1
		RETURNING created_at
	`
	err := r.pool.QueryRow(ctx, query,
		pgUUID(f.ID), f.Month, f.Weekday, f.PeriodOfDay, f.EventLabel,
		f.MenuItemID, f.DishID, f.CategoryID, f.Multiplier, f.Description, f.UpdatedAt,
	).Scan(&f.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("postgres: factor %s: %w", f.ID, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("postgres: failed to update factor: %w", err)
	}
	return nil
}

// DeleteFactor removes a factor
func (r *PostgresRepository) DeleteFactor(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM seasonal_factors WHERE id = $1`, pgUUID(id))
	if err != nil {
		return fmt.Errorf("postgres: failed to delete factor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: factor %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// GetFactor fetches one factor
func (r *PostgresRepository) GetFactor(ctx context.Context, id uuid.UUID) (domain.SeasonalFactor, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+factorColumns+` FROM seasonal_factors WHERE id = $1`, pgUUID(id))
	f, err := scanFactor(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.SeasonalFactor{}, fmt.Errorf("postgres: factor %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.SeasonalFactor{}, fmt.Errorf("postgres: failed to get factor: %w", err)
	}
	return f, nil
}

// ListFactors returns filtered factors ordered by creation time
func (r *PostgresRepository) ListFactors(ctx context.Context, filter domain.FactorFilter) ([]domain.SeasonalFactor, error) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.GlobalOnly {
		conds = append(conds, "menu_item_id IS NULL AND dish_id IS NULL AND category_id IS NULL")
	}
	if filter.Item != nil {
		if filter.Item.Kind == domain.ItemDish {
			add("dish_id = $%d", filter.Item.ID)
		} else {
			add("menu_item_id = $%d", filter.Item.ID)
		}
	}
	if filter.CategoryID != nil {
		add("category_id = $%d", *filter.CategoryID)
	}
	if filter.Month != nil {
		add("month = $%d", *filter.Month)
	}
	if filter.Weekday != nil {
		add("weekday = $%d", *filter.Weekday)
	}

	query := `SELECT ` + factorColumns + ` FROM seasonal_factors`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC"
	return r.queryFactors(ctx, query, args...)
}

// FactorsFor returns global factors, factors scoped to exactly item, and
// category factors when the caller supplies the category
func (r *PostgresRepository) FactorsFor(ctx context.Context, item domain.ItemRef, categoryID *int64) ([]domain.SeasonalFactor, error) {
	itemCol := "menu_item_id"
	if item.Kind == domain.ItemDish {
		itemCol = "dish_id"
	}
	query := `
		SELECT ` + factorColumns + `
		FROM seasonal_factors
		WHERE (menu_item_id IS NULL AND dish_id IS NULL AND category_id IS NULL)
		   OR ` + itemCol + ` = $1
		   OR ($2::bigint IS NOT NULL AND category_id = $2)
		ORDER BY created_at ASC, id ASC
	`
	return r.queryFactors(ctx, query, item.ID, categoryID)
}

func (r *PostgresRepository) queryFactors(ctx context.Context, query string, args ...any) ([]domain.SeasonalFactor, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query factors: %w", err)
	}
	defer rows.Close()

	var results []domain.SeasonalFactor
	for rows.Next() {
		f, err := scanFactor(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan factor row: %w", err)
		}
		results = append(results, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to iterate factors: %w", err)
	}
	return results, nil
}

func scanFactor(row pgx.Row) (domain.SeasonalFactor, error) {
	var (
		f  domain.SeasonalFactor
		id pgtype.UUID
	)
	err := row.Scan(
		&id, &f.Month, &f.Weekday, &f.PeriodOfDay, &f.EventLabel,
		&f.MenuItemID, &f.DishID, &f.CategoryID, &f.Multiplier, &f.Description,
		&f.CreatedAt, &f.UpdatedAt,
	)
	f.ID = uuid.UUID(id.Bytes)
	return f, err
}
