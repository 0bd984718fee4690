package store

import (
	"context"
	"slices"
	"time"

	"github.com/example/marketplace-orders/internal/domain/order"
)

// UnitOfWork inserts one order tree. Every insert assigns the new row id to
// the passed value and returns it so children can reference their parent.
// Nothing is visible to readers until the surrounding WithinTx commits.
type UnitOfWork interface {
	InsertOrder(ctx context.Context, o *order.Order) (string, error)
	InsertItem(ctx context.Context, orderID string, item *order.Item, position int) (string, error)
	InsertOptionGroup(ctx context.Context, itemID string, group *order.OptionGroup, position int) (string, error)
	InsertOption(ctx context.Context, groupID string, opt *order.Option, position int) (string, error)
}

// OrderStore defines the persisted order aggregate and its projections.
type OrderStore interface {
	// WithinTx runs fn in one transaction: commit when fn returns nil,
	// rollback otherwise.
	WithinTx(ctx context.Context, fn func(uow UnitOfWork) error) error

	// Get returns the full order tree or order.ErrOrderNotFound.
	Get(ctx context.Context, id string) (*order.Order, error)

	// List returns full order trees matching the filter.
	List(ctx context.Context, filter OrderFilter) ([]*order.Order, error)

	// Update locks the order row, applies fn to the root fields and writes
	// them back together, then returns the refreshed tree.
	Update(ctx context.Context, id string, fn func(o *order.Order) error) (*order.Order, error)

	// AddDiscount attaches a discount and bumps the order's updatedAt.
	AddDiscount(ctx context.Context, orderID string, d *order.Discount) error

	// Delete removes the order and its children.
	Delete(ctx context.Context, id string) error
}

type SortOrder int

const (
	SortCreatedDesc SortOrder = iota
	SortUpdatedDesc
)

// OrderFilter selects orders for list projections. Zero fields do not
// constrain the result.
type OrderFilter struct {
	BusinessIDs       []string
	UserID            string
	DeliveryCompanyID string
	// CreatedFrom keeps orders created at or after the instant.
	CreatedFrom time.Time
	// ChangedAfter keeps orders created or updated strictly after the instant.
	ChangedAfter time.Time
	Statuses     []order.Status
	// AttentionOnly keeps orders whose payment is acknowledged under the
	// cash/transfer rule.
	AttentionOnly bool
	Sort          SortOrder
}

// Matches evaluates the filter in memory.
func (f OrderFilter) Matches(o *order.Order) bool {
	if len(f.BusinessIDs) > 0 && !slices.Contains(f.BusinessIDs, o.BusinessID) {
		return false
	}
	if f.UserID != "" && o.UserID != f.UserID {
		return false
	}
	if f.DeliveryCompanyID != "" && o.DeliveryCompanyID != f.DeliveryCompanyID {
		return false
	}
	if !f.CreatedFrom.IsZero() && o.CreatedAt.Before(f.CreatedFrom) {
		return false
	}
	if !f.ChangedAfter.IsZero() && !o.CreatedAt.After(f.ChangedAfter) && !o.UpdatedAt.After(f.ChangedAfter) {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, o.Status) {
		return false
	}
	if f.AttentionOnly && !o.NotifiesBusiness() {
		return false
	}
	return true
}

// SortOrders orders a slice the way List does.
func SortOrders(orders []*order.Order, sort SortOrder) {
	slices.SortStableFunc(orders, func(a, b *order.Order) int {
		if sort == SortUpdatedDesc {
			if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
				return c
			}
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}
