package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kitchenops/backend/internal/domain"
)

// MenuItemExists checks the menu module's table
func (r *PostgresRepository) MenuItemExists(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM menu_items WHERE id = $1)`, id)
}

// DishExists checks the dish module's table
func (r *PostgresRepository) DishExists(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM dishes WHERE id = $1)`, id)
}

// MenuItemName resolves the display name of a menu item
func (r *PostgresRepository) MenuItemName(ctx context.Context, id int64) (string, error) {
	return r.name(ctx, "menu item", `SELECT name FROM menu_items WHERE id = $1`, id)
}

// DishName resolves the display name of a dish
func (r *PostgresRepository) DishName(ctx context.Context, id int64) (string, error) {
	return r.name(ctx, "dish", `SELECT name FROM dishes WHERE id = $1`, id)
}

func (r *PostgresRepository) exists(ctx context.Context, query string, id int64) (bool, error) {
	var ok bool
	if err := r.pool.QueryRow(ctx, query, id).Scan(&ok); err != nil {
		return false, fmt.Errorf("postgres: failed to check catalog: %w", err)
	}
	return ok, nil
}

func (r *PostgresRepository) name(ctx context.Context, what, query string, id int64) (string, error) {
	var name string
	err := r.pool.QueryRow(ctx, query, id).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("postgres: %s %d: %w", what, id, domain.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("postgres: failed to resolve %s name: %w", what, err)
	}
	return name, nil
}
