package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/marketplace-orders/internal/domain/order"
	"github.com/example/marketplace-orders/internal/infrastructure/store"
)

// MockOrderStore is an in-memory implementation of store.OrderStore for
// testing. Writes made inside WithinTx only become visible on commit.
type MockOrderStore struct {
	mu     sync.RWMutex
	orders map[string]*order.Order

	// For tracking calls in tests
	InsertCalls   []InsertCall
	UpdateCalls   []string
	ListCalls     []store.OrderFilter
	DeleteCalls   []string
	DiscountCalls []string
	Commits       int
	Rollbacks     int

	// Injected failures
	InsertOrderErr       error
	InsertItemErr        error
	InsertOptionGroupErr error
	InsertOptionErr      error
	GetErr               error
	ListErr              error
	UpdateErr            error
}

// InsertCall records one unit-of-work insert.
type InsertCall struct {
	Kind     string // order, item, group, option
	ParentID string
	ID       string
}

// NewMockOrderStore creates a new MockOrderStore
func NewMockOrderStore() *MockOrderStore {
	return &MockOrderStore{
		orders:      make(map[string]*order.Order),
		InsertCalls: make([]InsertCall, 0),
	}
}

func (m *MockOrderStore) WithinTx(ctx context.Context, fn func(uow store.UnitOfWork) error) error {
	uow := &mockUnitOfWork{store: m, staged: make(map[string]*order.Order)}
	if err := fn(uow); err != nil {
		m.mu.Lock()
		m.Rollbacks++
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, o := range uow.staged {
		m.orders[id] = o
	}
	m.Commits++
	return nil
}

func (m *MockOrderStore) Get(ctx context.Context, id string) (*order.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	return o.Clone(), nil
}

func (m *MockOrderStore) List(ctx context.Context, filter store.OrderFilter) ([]*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListCalls = append(m.ListCalls, filter)
	if m.ListErr != nil {
		return nil, m.ListErr
	}

	result := make([]*order.Order, 0)
	for _, o := range m.orders {
		if filter.Matches(o) {
			result = append(result, o.Clone())
		}
	}
	store.SortOrders(result, filter.Sort)
	return result, nil
}

func (m *MockOrderStore) Update(ctx context.Context, id string, fn func(o *order.Order) error) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls = append(m.UpdateCalls, id)
	if m.UpdateErr != nil {
		return nil, m.UpdateErr
	}

	current, ok := m.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	m.orders[id] = next
	return next.Clone(), nil
}

func (m *MockOrderStore) AddDiscount(ctx context.Context, orderID string, d *order.Discount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DiscountCalls = append(m.DiscountCalls, orderID)

	o, ok := m.orders[orderID]
	if !ok {
		return fmt.Errorf("%w: %s", order.ErrOrderNotFound, orderID)
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	d.ID = uuid.NewString()
	d.OrderID = orderID
	o.Discounts = append(o.Discounts, *d)
	o.UpdatedAt = d.CreatedAt
	return nil
}

func (m *MockOrderStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCalls = append(m.DeleteCalls, id)
	if _, ok := m.orders[id]; !ok {
		return fmt.Errorf("%w: %s", order.ErrOrderNotFound, id)
	}
	delete(m.orders, id)
	return nil
}

// SetOrder stores an order directly for testing
func (m *MockOrderStore) SetOrder(o *order.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o.Clone()
}

// Len returns the number of committed orders.
func (m *MockOrderStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.orders)
}

type itemRef struct {
	orderID string
	idx     int
}

type groupRef struct {
	item itemRef
	idx  int
}

// mockUnitOfWork stages an order tree until the transaction commits.
type mockUnitOfWork struct {
	store  *MockOrderStore
	staged map[string]*order.Order
	items  map[string]itemRef
	groups map[string]groupRef
}

func (u *mockUnitOfWork) record(kind, parentID, id string) {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	u.store.InsertCalls = append(u.store.InsertCalls, InsertCall{Kind: kind, ParentID: parentID, ID: id})
}

func (u *mockUnitOfWork) InsertOrder(ctx context.Context, o *order.Order) (string, error) {
	if u.store.InsertOrderErr != nil {
		return "", u.store.InsertOrderErr
	}
	o.ID = uuid.NewString()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = o.CreatedAt
	}

	root := o.Clone()
	root.Items = []order.Item{}
	root.Discounts = []order.Discount{}
	u.staged[o.ID] = root
	u.items = make(map[string]itemRef)
	u.groups = make(map[string]groupRef)
	u.record("order", "", o.ID)
	return o.ID, nil
}

func (u *mockUnitOfWork) InsertItem(ctx context.Context, orderID string, item *order.Item, position int) (string, error) {
	if u.store.InsertItemErr != nil {
		return "", u.store.InsertItemErr
	}
	o, ok := u.staged[orderID]
	if !ok {
		return "", fmt.Errorf("insert item: order %s not in transaction", orderID)
	}
	item.ID = uuid.NewString()
	item.OrderID = orderID

	staged := *item
	staged.OptionGroups = []order.OptionGroup{}
	o.Items = append(o.Items, staged)
	u.items[item.ID] = itemRef{orderID: orderID, idx: len(o.Items) - 1}
	u.record("item", orderID, item.ID)
	return item.ID, nil
}

func (u *mockUnitOfWork) InsertOptionGroup(ctx context.Context, itemID string, group *order.OptionGroup, position int) (string, error) {
	if u.store.InsertOptionGroupErr != nil {
		return "", u.store.InsertOptionGroupErr
	}
	ref, ok := u.items[itemID]
	if !ok {
		return "", fmt.Errorf("insert option group: item %s not in transaction", itemID)
	}
	group.ID = uuid.NewString()
	group.OrderItemID = itemID

	staged := *group
	staged.Options = []order.Option{}
	item := &u.staged[ref.orderID].Items[ref.idx]
	item.OptionGroups = append(item.OptionGroups, staged)
	u.groups[group.ID] = groupRef{item: ref, idx: len(item.OptionGroups) - 1}
	u.record("group", itemID, group.ID)
	return group.ID, nil
}

func (u *mockUnitOfWork) InsertOption(ctx context.Context, groupID string, opt *order.Option, position int) (string, error) {
	if u.store.InsertOptionErr != nil {
		return "", u.store.InsertOptionErr
	}
	ref, ok := u.groups[groupID]
	if !ok {
		return "", fmt.Errorf("insert option: group %s not in transaction", groupID)
	}
	opt.ID = uuid.NewString()
	opt.OptionGroupID = groupID

	group := &u.staged[ref.item.orderID].Items[ref.item.idx].OptionGroups[ref.idx]
	group.Options = append(group.Options, *opt)
	u.record("option", groupID, opt.ID)
	return opt.ID, nil
}

// MockDeliveryCompanies is an in-memory delivery company directory.
type MockDeliveryCompanies struct {
	mu        sync.RWMutex
	companies map[string]bool
	Err       error
}

// NewMockDeliveryCompanies knows exactly the given company ids.
func NewMockDeliveryCompanies(ids ...string) *MockDeliveryCompanies {
	m := &MockDeliveryCompanies{companies: make(map[string]bool)}
	for _, id := range ids {
		m.companies[id] = true
	}
	return m
}

func (m *MockDeliveryCompanies) Exists(ctx context.Context, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return false, m.Err
	}
	return m.companies[id], nil
}
