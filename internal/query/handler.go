package query

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/example/marketplace-orders/internal/domain/order"
	"github.com/example/marketplace-orders/internal/infrastructure/store"
)

// DefaultWindow is how far back the scoped lists look when the caller
// neither asks for everything nor passes a lower bound.
const DefaultWindow = 24 * time.Hour

// ListOptions narrows the business, user and delivery listings.
type ListOptions struct {
	// All disables the operational window.
	All bool
	// Since overrides the window's lower bound when set.
	Since time.Time
}

// Handler answers order reads.
type Handler struct {
	orders store.OrderStore
	window time.Duration
	now    func() time.Time
}

// NewHandler creates a query handler. Lists default to orders created
// within window; zero means DefaultWindow.
func NewHandler(orders store.OrderStore, window time.Duration) *Handler {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Handler{
		orders: orders,
		window: window,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (h *Handler) FindOne(ctx context.Context, id string) (*order.Order, error) {
	o, err := h.orders.Get(ctx, id)
	if err != nil {
		return nil, wrap("find order "+id, err)
	}
	return o, nil
}

// FindAll lists every order, newest first.
func (h *Handler) FindAll(ctx context.Context) ([]*order.Order, error) {
	return h.list(ctx, "find all", store.OrderFilter{})
}

func (h *Handler) FindByBusiness(ctx context.Context, businessID string, opts ListOptions) ([]*order.Order, error) {
	return h.list(ctx, "find by business", store.OrderFilter{
		BusinessIDs: []string{businessID},
		CreatedFrom: h.lowerBound(opts),
	})
}

func (h *Handler) FindByUser(ctx context.Context, userID string, opts ListOptions) ([]*order.Order, error) {
	return h.list(ctx, "find by user", store.OrderFilter{
		UserID:      userID,
		CreatedFrom: h.lowerBound(opts),
	})
}

func (h *Handler) FindByDeliveryCompany(ctx context.Context, companyID string, opts ListOptions) ([]*order.Order, error) {
	return h.list(ctx, "find by delivery company", store.OrderFilter{
		DeliveryCompanyID: companyID,
		CreatedFrom:       h.lowerBound(opts),
	})
}

// SyncByBusiness returns every order of the business when lastSync is nil,
// otherwise the orders created or updated strictly after it. Results are
// newest-updated first.
func (h *Handler) SyncByBusiness(ctx context.Context, businessID string, lastSync *time.Time) ([]*order.Order, error) {
	f := store.OrderFilter{
		BusinessIDs: []string{businessID},
		Sort:        store.SortUpdatedDesc,
	}
	if lastSync != nil {
		f.ChangedAfter = *lastSync
	}
	return h.list(ctx, "sync by business", f)
}

// FindMerchantAttentionOrders returns the PENDING orders a merchant has to
// act on: cash orders, and transfer orders whose payment has moved past
// PENDING.
func (h *Handler) FindMerchantAttentionOrders(ctx context.Context, businessIDs []string) ([]*order.Order, error) {
	return h.SyncMerchantAttentionOrders(ctx, businessIDs, nil)
}

func (h *Handler) SyncMerchantAttentionOrders(ctx context.Context, businessIDs []string, lastSync *time.Time) ([]*order.Order, error) {
	if len(businessIDs) == 0 {
		return nil, fmt.Errorf("%w: businessIds: at least one id is required", order.ErrValidation)
	}
	f := store.OrderFilter{
		BusinessIDs:   businessIDs,
		Statuses:      []order.Status{order.StatusPending},
		AttentionOnly: true,
	}
	if lastSync != nil {
		f.ChangedAfter = *lastSync
		f.Sort = store.SortUpdatedDesc
	}
	return h.list(ctx, "merchant attention", f)
}

func (h *Handler) lowerBound(opts ListOptions) time.Time {
	switch {
	case opts.All:
		return time.Time{}
	case !opts.Since.IsZero():
		return opts.Since
	default:
		return h.now().Add(-h.window)
	}
}

func (h *Handler) list(ctx context.Context, op string, f store.OrderFilter) ([]*order.Order, error) {
	orders, err := h.orders.List(ctx, f)
	if err != nil {
		return nil, wrap(op, err)
	}
	return orders, nil
}

func wrap(op string, err error) error {
	if order.KindOf(err) != order.KindUnexpected {
		return err
	}
	log.Printf("[Query] Error in %s: %v", op, err)
	return fmt.Errorf("%w: %s: %v", order.ErrUnexpected, op, err)
}
