// Package catalog is the read-only view of the menu catalog that the order
// engine validates against. Catalog management lives in another service.
package catalog

import "context"

// ModuleMenu is the business module that enables ordering.
const ModuleMenu = "MENU"

// Module is one feature module configured for a business.
type Module struct {
	Key     string `json:"key"`
	Enabled bool   `json:"enabled"`
}

type Option struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type OptionGroup struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Options []Option `json:"options"`
}

// Product is a menu product together with its option groups.
type Product struct {
	ID           string        `json:"id"`
	BusinessID   string        `json:"businessId"`
	Name         string        `json:"name"`
	OptionGroups []OptionGroup `json:"optionGroups"`
}

// Gateway answers the two questions order validation needs.
type Gateway interface {
	// Modules returns the module configuration of a business.
	Modules(ctx context.Context, businessID string) ([]Module, error)
	// Products returns the requested products with their current option
	// groups and options. Unknown ids are omitted from the result.
	Products(ctx context.Context, ids []string) ([]Product, error)
}

// ModuleEnabled reports whether key is present and enabled.
func ModuleEnabled(modules []Module, key string) bool {
	for _, m := range modules {
		if m.Key == key {
			return m.Enabled
		}
	}
	return false
}

// Group returns the option group with the given id.
func (p *Product) Group(id string) (*OptionGroup, bool) {
	for i := range p.OptionGroups {
		if p.OptionGroups[i].ID == id {
			return &p.OptionGroups[i], true
		}
	}
	return nil, false
}

// HasOption reports whether the group currently contains the option.
func (g *OptionGroup) HasOption(id string) bool {
	for _, o := range g.Options {
		if o.ID == id {
			return true
		}
	}
	return false
}
