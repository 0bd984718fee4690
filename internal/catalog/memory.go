package catalog

import (
	"context"
	"sync"
)

// MemoryGateway is an in-memory catalog used in tests and local runs.
type MemoryGateway struct {
	mu       sync.RWMutex
	modules  map[string][]Module
	products map[string]Product

	// ProductCalls records every batch passed to Products.
	ProductCalls [][]string
	Err          error
}

// NewMemoryGateway creates an empty in-memory catalog.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		modules:  make(map[string][]Module),
		products: make(map[string]Product),
	}
}

// SetModules replaces the module configuration of a business.
func (g *MemoryGateway) SetModules(businessID string, modules ...Module) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.modules[businessID] = modules
}

// EnableMenu is a shortcut for SetModules(businessID, {MENU, true}).
func (g *MemoryGateway) EnableMenu(businessID string) {
	g.SetModules(businessID, Module{Key: ModuleMenu, Enabled: true})
}

// AddProduct registers or replaces a product.
func (g *MemoryGateway) AddProduct(p Product) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.products[p.ID] = p
}

func (g *MemoryGateway) Modules(ctx context.Context, businessID string) ([]Module, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.Err != nil {
		return nil, g.Err
	}
	return g.modules[businessID], nil
}

func (g *MemoryGateway) Products(ctx context.Context, ids []string) ([]Product, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ProductCalls = append(g.ProductCalls, append([]string(nil), ids...))
	if g.Err != nil {
		return nil, g.Err
	}

	products := make([]Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := g.products[id]; ok {
			products = append(products, p)
		}
	}
	return products, nil
}
