package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// PostgresGateway reads the catalog tables owned by the catalog service.
type PostgresGateway struct {
	db *sql.DB
}

// NewPostgresGateway creates a gateway reading the catalog tables through db.
func NewPostgresGateway(db *sql.DB) *PostgresGateway {
	return &PostgresGateway{db: db}
}

func (g *PostgresGateway) Modules(ctx context.Context, businessID string) ([]Module, error) {
	rows, err := g.db.QueryContext(ctx, `
		SELECT module_key, enabled
		FROM business_modules
		WHERE business_id = $1
	`, businessID)
	if err != nil {
		return nil, fmt.Errorf("query business modules: %w", err)
	}
	defer rows.Close()

	var modules []Module
	for rows.Next() {
		var m Module
		if err := rows.Scan(&m.Key, &m.Enabled); err != nil {
			return nil, fmt.Errorf("scan business module: %w", err)
		}
		modules = append(modules, m)
	}
	return modules, rows.Err()
}

// Products loads products, groups, and options in one statement so a
// validation costs a single round trip regardless of item count.
func (g *PostgresGateway) Products(ctx context.Context, ids []string) ([]Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := g.db.QueryContext(ctx, `
		SELECT p.id, p.business_id, p.name, og.id, og.name, o.id, o.name
		FROM menu_products p
		LEFT JOIN option_groups og ON og.product_id = p.id
		LEFT JOIN options o ON o.option_group_id = og.id
		WHERE p.id = ANY($1)
		ORDER BY p.id, og.id, o.id
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []Product
	index := make(map[string]int)
	for rows.Next() {
		var (
			productID, businessID, productName string
			groupID, groupName                 sql.NullString
			optionID, optionName               sql.NullString
		)
		if err := rows.Scan(&productID, &businessID, &productName, &groupID, &groupName, &optionID, &optionName); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}

		pi, ok := index[productID]
		if !ok {
			products = append(products, Product{ID: productID, BusinessID: businessID, Name: productName})
			pi = len(products) - 1
			index[productID] = pi
		}
		if !groupID.Valid {
			continue
		}

		p := &products[pi]
		group, ok := p.Group(groupID.String)
		if !ok {
			p.OptionGroups = append(p.OptionGroups, OptionGroup{ID: groupID.String, Name: groupName.String})
			group = &p.OptionGroups[len(p.OptionGroups)-1]
		}
		if optionID.Valid {
			group.Options = append(group.Options, Option{ID: optionID.String, Name: optionName.String})
		}
	}
	return products, rows.Err()
}
