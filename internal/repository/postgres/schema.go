package postgres

import (
	"context"
	"fmt"
)

// schema holds the tables owned by the forecasting core. menu_items and
// dishes belong to the menu module and are only read here.
const schema = `
CREATE TABLE IF NOT EXISTS sales_history (
	id            UUID PRIMARY KEY,
	sale_date     DATE NOT NULL,
	menu_item_id  BIGINT,
	dish_id       BIGINT,
	quantity      INTEGER NOT NULL CHECK (quantity >= 0),
	unit_price    NUMERIC(12,2) NOT NULL CHECK (unit_price >= 0),
	total_price   NUMERIC(14,2) NOT NULL,
	period_of_day TEXT,
	weekday       SMALLINT NOT NULL,
	week_of_month SMALLINT NOT NULL,
	month         SMALLINT NOT NULL,
	is_holiday    BOOLEAN NOT NULL DEFAULT FALSE,
	event_label   TEXT,
	weather       TEXT,
	temperature   DOUBLE PRECISION,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CHECK ((menu_item_id IS NULL) <> (dish_id IS NULL))
);
CREATE INDEX IF NOT EXISTS idx_sales_history_date ON sales_history (sale_date);
CREATE INDEX IF NOT EXISTS idx_sales_history_menu_item ON sales_history (menu_item_id, sale_date);
CREATE INDEX IF NOT EXISTS idx_sales_history_dish ON sales_history (dish_id, sale_date);

CREATE TABLE IF NOT EXISTS seasonal_factors (
	id            UUID PRIMARY KEY,
	month         SMALLINT,
	weekday       SMALLINT,
	period_of_day TEXT,
	event_label   TEXT,
	menu_item_id  BIGINT,
	dish_id       BIGINT,
	category_id   BIGINT,
	multiplier    DOUBLE PRECISION NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS demand_forecasts (
	id           UUID PRIMARY KEY,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	start_date   DATE NOT NULL,
	end_date     DATE NOT NULL,
	menu_item_id BIGINT,
	dish_id      BIGINT,
	method       TEXT NOT NULL,
	parameters   JSONB NOT NULL,
	predictions  JSONB NOT NULL,
	confidence   DOUBLE PRECISION NOT NULL,
	CHECK (start_date <= end_date)
);
`

// Migrate creates the forecasting tables when missing
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: failed to apply schema: %w", err)
	}
	return nil
}
