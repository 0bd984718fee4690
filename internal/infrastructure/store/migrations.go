package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

// Migration is one forward-only schema step.
type Migration struct {
	Version int
	Name    string
	Up      string
}

// AllMigrations contains all database migrations in order
var AllMigrations = []Migration{
	{Version: 1, Name: "order_tree", Up: migrationOrderTree},
	{Version: 2, Name: "order_indexes", Up: migrationOrderIndexes},
}

const migrationOrderTree = `
CREATE TABLE IF NOT EXISTS orders (
    id                   TEXT PRIMARY KEY,
    business_id          TEXT NOT NULL,
    user_id              TEXT NOT NULL,
    delivery_company_id  TEXT,
    status               TEXT NOT NULL,
    origin               TEXT NOT NULL,
    is_test              BOOLEAN NOT NULL DEFAULT FALSE,
    total                NUMERIC(12,2) NOT NULL CHECK (total >= 0),
    total_delivery_cost  NUMERIC(12,2) NOT NULL DEFAULT 0,
    customer_name        TEXT NOT NULL,
    customer_phone       TEXT NOT NULL,
    customer_address     TEXT NOT NULL DEFAULT '',
    customer_latitude    NUMERIC(10,7),
    customer_longitude   NUMERIC(10,7),
    business_name        TEXT NOT NULL,
    business_phone       TEXT NOT NULL,
    business_address     TEXT NOT NULL,
    business_latitude    NUMERIC(10,7),
    business_longitude   NUMERIC(10,7),
    order_payment_method TEXT NOT NULL,
    payment_status       TEXT NOT NULL,
    cadet_payment_payer  TEXT NOT NULL,
    cadet_payment_method TEXT,
    payment_receipt_url  TEXT,
    payment_instructions TEXT,
    payment_holder_name  TEXT,
    payment_expected     JSONB NOT NULL,
    payment_received     JSONB NOT NULL,
    delivery_type        TEXT NOT NULL,
    notes                TEXT NOT NULL DEFAULT '',
    created_at           TIMESTAMPTZ NOT NULL,
    updated_at           TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS order_items (
    id                  TEXT PRIMARY KEY,
    order_id            TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
    position            INTEGER NOT NULL,
    menu_product_id     TEXT NOT NULL,
    product_name        TEXT NOT NULL,
    product_description TEXT NOT NULL DEFAULT '',
    product_image       TEXT NOT NULL DEFAULT '',
    quantity            INTEGER NOT NULL CHECK (quantity >= 1),
    price_at_purchase   NUMERIC(12,2) NOT NULL,
    notes               TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS order_option_groups (
    id               TEXT PRIMARY KEY,
    order_item_id    TEXT NOT NULL REFERENCES order_items(id) ON DELETE CASCADE,
    position         INTEGER NOT NULL,
    group_name       TEXT NOT NULL,
    min_quantity     INTEGER NOT NULL,
    max_quantity     INTEGER NOT NULL,
    quantity_type    TEXT NOT NULL,
    catalog_group_id TEXT
);

CREATE TABLE IF NOT EXISTS order_options (
    id                    TEXT PRIMARY KEY,
    order_option_group_id TEXT NOT NULL REFERENCES order_option_groups(id) ON DELETE CASCADE,
    position              INTEGER NOT NULL,
    option_name           TEXT NOT NULL,
    price_modifier_type   TEXT NOT NULL,
    quantity              INTEGER NOT NULL,
    price_final           NUMERIC(12,2) NOT NULL,
    price_without_taxes   NUMERIC(12,2) NOT NULL,
    taxes_amount          NUMERIC(12,2) NOT NULL,
    catalog_option_id     TEXT
);

CREATE TABLE IF NOT EXISTS order_discounts (
    id            TEXT PRIMARY KEY,
    order_id      TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
    amount        NUMERIC(12,2) NOT NULL,
    discount_type TEXT NOT NULL,
    notes         TEXT NOT NULL DEFAULT '',
    absorbed_by   TEXT,
    created_at    TIMESTAMPTZ NOT NULL
);
`

const migrationOrderIndexes = `
CREATE INDEX IF NOT EXISTS idx_orders_business_created ON orders(business_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_orders_user_created ON orders(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_orders_delivery_company ON orders(delivery_company_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_orders_updated ON orders(updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id);
CREATE INDEX IF NOT EXISTS idx_order_option_groups_item ON order_option_groups(order_item_id);
CREATE INDEX IF NOT EXISTS idx_order_options_group ON order_options(order_option_group_id);
CREATE INDEX IF NOT EXISTS idx_order_discounts_order ON order_discounts(order_id);
`

// ApplyMigrations runs every migration newer than the recorded version,
// each in its own transaction.
func ApplyMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, m := range AllMigrations {
		if m.Version <= current {
			continue
		}
		if err := applyMigration(ctx, db, m); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
		}
		log.Printf("[Store] Applied migration %d (%s)", m.Version, m.Name)
	}
	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, m.Up); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.Version, m.Name); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
