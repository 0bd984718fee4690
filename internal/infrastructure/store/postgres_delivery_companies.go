package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresDeliveryCompanies looks up delivery companies managed by the
// logistics service.
type PostgresDeliveryCompanies struct {
	db *sql.DB
}

// NewPostgresDeliveryCompanies creates a lookup over the delivery_companies table.
func NewPostgresDeliveryCompanies(db *sql.DB) *PostgresDeliveryCompanies {
	return &PostgresDeliveryCompanies{db: db}
}

func (d *PostgresDeliveryCompanies) Exists(ctx context.Context, id string) (bool, error) {
	var found int
	err := d.db.QueryRowContext(ctx, `SELECT 1 FROM delivery_companies WHERE id = $1`, id).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query delivery company: %w", err)
	}
	return true, nil
}
