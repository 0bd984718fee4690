package command

import (
	"context"
	"fmt"

	"github.com/example/marketplace-orders/internal/catalog"
	"github.com/example/marketplace-orders/internal/domain/order"
)

// Validator checks an order draft against the live catalog. It never
// writes and asks the catalog for products once per call.
type Validator struct {
	catalog         catalog.Gateway
	enforceQuantity bool
}

// NewValidator creates a validator. With enforceQuantity set, every option
// group must select between minQuantity and maxQuantity options in total.
func NewValidator(gw catalog.Gateway, enforceQuantity bool) *Validator {
	return &Validator{catalog: gw, enforceQuantity: enforceQuantity}
}

// CheckModule fails with ErrModuleDisabled unless the business has the
// MENU module enabled.
func (v *Validator) CheckModule(ctx context.Context, businessID string) error {
	modules, err := v.catalog.Modules(ctx, businessID)
	if err != nil {
		return fmt.Errorf("%w: load modules for business %s: %v", order.ErrUnexpected, businessID, err)
	}
	if !catalog.ModuleEnabled(modules, catalog.ModuleMenu) {
		return fmt.Errorf("%w: business %s", order.ErrModuleDisabled, businessID)
	}
	return nil
}

// ValidateCreate runs the catalog checks for a full order tree.
func (v *Validator) ValidateCreate(ctx context.Context, o *order.Order) error {
	if err := v.CheckModule(ctx, o.BusinessID); err != nil {
		return err
	}

	ids := o.ProductIDs()
	products, err := v.catalog.Products(ctx, ids)
	if err != nil {
		return fmt.Errorf("%w: load products: %v", order.ErrUnexpected, err)
	}
	byID := make(map[string]*catalog.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	for _, item := range o.Items {
		product, ok := byID[item.MenuProductID]
		if !ok {
			return fmt.Errorf("%w: %s", order.ErrUnknownProduct, item.MenuProductID)
		}
		// Another business's product is unknown to this menu
		if product.BusinessID != o.BusinessID {
			return fmt.Errorf("%w: %s is not on the menu of business %s", order.ErrUnknownProduct, item.MenuProductID, o.BusinessID)
		}
		if err := v.checkGroups(product, item); err != nil {
			return err
		}
	}
	return nil
}

func (v *Validator) checkGroups(product *catalog.Product, item order.Item) error {
	for _, group := range item.OptionGroups {
		if group.CatalogGroupID != "" {
			catalogGroup, ok := product.Group(group.CatalogGroupID)
			if !ok {
				return fmt.Errorf("%w: group %s on product %s", order.ErrInvalidOptionGroup, group.CatalogGroupID, product.ID)
			}
			for _, opt := range group.Options {
				if opt.CatalogOptionID != "" && !catalogGroup.HasOption(opt.CatalogOptionID) {
					return fmt.Errorf("%w: option %s in group %s", order.ErrInvalidOption, opt.CatalogOptionID, catalogGroup.ID)
				}
			}
		}

		if !v.enforceQuantity {
			continue
		}
		selected := 0
		for _, opt := range group.Options {
			selected += opt.Quantity
		}
		if selected < group.MinQuantity || selected > group.MaxQuantity {
			return fmt.Errorf("%w: group %q selected %d, allowed %d..%d",
				order.ErrOptionQuantityOutOfRange, group.GroupName, selected, group.MinQuantity, group.MaxQuantity)
		}
	}
	return nil
}
