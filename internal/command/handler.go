package command

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/example/marketplace-orders/internal/domain/order"
	"github.com/example/marketplace-orders/internal/infrastructure/store"
	"github.com/example/marketplace-orders/internal/metrics"
)

// EventPublisher announces order changes to connected clients.
// Implementations swallow their own delivery failures.
type EventPublisher interface {
	OrderCreated(ctx context.Context, o *order.Order)
	DeliveryAssigned(ctx context.Context, o *order.Order)
	StatusUpdated(ctx context.Context, o *order.Order)
	PaymentUpdated(ctx context.Context, o *order.Order)
	OrderUpdated(ctx context.Context, o *order.Order)
}

// DeliveryCompanies resolves delivery company ids.
type DeliveryCompanies interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Handler executes order commands and announces their results.
type Handler struct {
	orders    store.OrderStore
	validator *Validator
	companies DeliveryCompanies
	events    EventPublisher

	// strictTransitions rejects status writes outside the lifecycle graph
	// instead of logging them.
	strictTransitions bool
	metrics           *metrics.Metrics
	now               func() time.Time
}

// NewHandler creates a new command handler
func NewHandler(
	orders store.OrderStore,
	validator *Validator,
	companies DeliveryCompanies,
	events EventPublisher,
	strictTransitions bool,
) *Handler {
	return &Handler{
		orders:            orders,
		validator:         validator,
		companies:         companies,
		events:            events,
		strictTransitions: strictTransitions,
		now:               func() time.Time { return time.Now().UTC() },
	}
}

// WithMetrics counts created orders on m.
func (h *Handler) WithMetrics(m *metrics.Metrics) *Handler {
	h.metrics = m
	return h
}

func (h *Handler) countCreated(o *order.Order) {
	if h.metrics != nil {
		h.metrics.OrdersCreated.WithLabelValues(string(o.PaymentMethod)).Inc()
	}
}

// CreateFull validates and persists a complete order tree in one unit of
// work, then announces it.
func (h *Handler) CreateFull(ctx context.Context, cmd CreateOrder) (*order.Order, error) {
	o := cmd.ToOrder(h.now())

	// 1. Structural checks, no I/O
	if err := order.ValidateNew(o, true); err != nil {
		return nil, err
	}

	// 2. Catalog checks
	if err := h.validator.ValidateCreate(ctx, o); err != nil {
		return nil, err
	}

	// 3. Atomic write of order, items, groups and options
	err := h.orders.WithinTx(ctx, func(uow store.UnitOfWork) error {
		return insertTree(ctx, uow, o)
	})
	if err != nil {
		return nil, unexpected("create order", err)
	}

	created, err := h.orders.Get(ctx, o.ID)
	if err != nil {
		return nil, unexpected("reload order", err)
	}

	log.Printf("[Order] Created order %s for business %s (%d items)", created.ID, created.BusinessID, len(created.Items))
	h.countCreated(created)
	h.events.OrderCreated(ctx, created)
	return created, nil
}

// Create persists an order root without line items. It is the import and
// administration path; clients placing orders use CreateFull.
func (h *Handler) Create(ctx context.Context, cmd CreateOrder) (*order.Order, error) {
	if len(cmd.Items) > 0 {
		return nil, fmt.Errorf("%w: items: not accepted on this path, create the full order instead", order.ErrValidation)
	}
	o := cmd.ToOrder(h.now())

	if err := order.ValidateNew(o, false); err != nil {
		return nil, err
	}
	if err := h.validator.CheckModule(ctx, o.BusinessID); err != nil {
		return nil, err
	}

	err := h.orders.WithinTx(ctx, func(uow store.UnitOfWork) error {
		_, err := uow.InsertOrder(ctx, o)
		return err
	})
	if err != nil {
		return nil, unexpected("create order", err)
	}

	created, err := h.orders.Get(ctx, o.ID)
	if err != nil {
		return nil, unexpected("reload order", err)
	}

	log.Printf("[Order] Created order root %s for business %s", created.ID, created.BusinessID)
	h.countCreated(created)
	h.events.OrderCreated(ctx, created)
	return created, nil
}

func insertTree(ctx context.Context, uow store.UnitOfWork, o *order.Order) error {
	orderID, err := uow.InsertOrder(ctx, o)
	if err != nil {
		return err
	}
	for i := range o.Items {
		item := &o.Items[i]
		itemID, err := uow.InsertItem(ctx, orderID, item, i)
		if err != nil {
			return err
		}
		for j := range item.OptionGroups {
			group := &item.OptionGroups[j]
			groupID, err := uow.InsertOptionGroup(ctx, itemID, group, j)
			if err != nil {
				return err
			}
			for k := range group.Options {
				if _, err := uow.InsertOption(ctx, groupID, &group.Options[k], k); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Update merges a patch of non-lifecycle fields.
func (h *Handler) Update(ctx context.Context, id string, cmd UpdateOrder) (*order.Order, error) {
	if err := validatePatch(cmd); err != nil {
		return nil, err
	}

	updated, err := h.orders.Update(ctx, id, func(o *order.Order) error {
		if cmd.Notes != nil {
			o.Notes = *cmd.Notes
		}
		if cmd.DeliveryType != nil {
			o.DeliveryType = *cmd.DeliveryType
		}
		if cmd.IsTest != nil {
			o.IsTest = *cmd.IsTest
		}
		if cmd.TotalDeliveryCost != nil {
			o.TotalDeliveryCost = *cmd.TotalDeliveryCost
		}
		if cmd.CustomerAddress != nil {
			o.Customer.Address = *cmd.CustomerAddress
		}
		if cmd.CadetPaymentPayer != nil {
			o.CadetPaymentPayer = *cmd.CadetPaymentPayer
		}
		if cmd.CadetPaymentMethod != nil {
			o.CadetPaymentMethod = *cmd.CadetPaymentMethod
		}
		if cmd.PaymentExpected != nil {
			o.PaymentExpected = cmd.PaymentExpected
		}
		if cmd.PaymentReceived != nil {
			o.PaymentReceived = cmd.PaymentReceived
		}
		o.UpdatedAt = h.now()
		return nil
	})
	if err != nil {
		return nil, unexpected("update order", err)
	}

	h.events.OrderUpdated(ctx, updated)
	return updated, nil
}

func validatePatch(cmd UpdateOrder) error {
	switch {
	case cmd.DeliveryType != nil && !cmd.DeliveryType.Valid():
		return fmt.Errorf("%w: deliveryType: unknown delivery type %q", order.ErrValidation, *cmd.DeliveryType)
	case cmd.TotalDeliveryCost != nil && !order.IsMoney(*cmd.TotalDeliveryCost):
		return fmt.Errorf("%w: totalDeliveryCost: must be a non-negative amount with at most 2 decimals", order.ErrValidation)
	case cmd.CadetPaymentPayer != nil && !cmd.CadetPaymentPayer.Valid():
		return fmt.Errorf("%w: cadetPaymentPayer: unknown payer %q", order.ErrValidation, *cmd.CadetPaymentPayer)
	case cmd.CadetPaymentMethod != nil && *cmd.CadetPaymentMethod != "" && !cmd.CadetPaymentMethod.Valid():
		return fmt.Errorf("%w: cadetPaymentMethod: unknown method %q", order.ErrValidation, *cmd.CadetPaymentMethod)
	}
	if cmd.PaymentExpected != nil {
		if err := order.ValidateLedger("paymentExpected", cmd.PaymentExpected); err != nil {
			return err
		}
	}
	if cmd.PaymentReceived != nil {
		if err := order.ValidateLedger("paymentReceived", cmd.PaymentReceived); err != nil {
			return err
		}
	}
	return nil
}

// UpdateStatus writes a new order status and notifies every audience of
// the order.
func (h *Handler) UpdateStatus(ctx context.Context, id string, status order.Status) (*order.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: status: unknown status %q", order.ErrValidation, status)
	}

	updated, err := h.orders.Update(ctx, id, func(o *order.Order) error {
		if err := h.checkTransition(o, status); err != nil {
			return err
		}
		o.Status = status
		o.UpdatedAt = h.now()
		return nil
	})
	if err != nil {
		return nil, unexpected("update status", err)
	}

	h.events.StatusUpdated(ctx, updated)
	return updated, nil
}

func (h *Handler) checkTransition(o *order.Order, target order.Status) error {
	if o.CanTransitionTo(target) {
		return nil
	}
	if h.strictTransitions {
		return fmt.Errorf("%w: %s -> %s", order.ErrIllegalStatusTransition, o.Status, target)
	}
	log.Printf("[Order] Warning: order %s moved outside the lifecycle graph: %s -> %s", o.ID, o.Status, target)
	return nil
}

// UpdatePaymentStatus moves the payment state machine and derives the
// order status from it in the same row write.
func (h *Handler) UpdatePaymentStatus(ctx context.Context, id string, status order.PaymentStatus) (*order.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: paymentStatus: unknown status %q", order.ErrValidation, status)
	}

	updated, err := h.orders.Update(ctx, id, func(o *order.Order) error {
		if o.PaymentStatus.Final() {
			return fmt.Errorf("%w: order %s is %s", order.ErrPaymentAlreadyFinalized, o.ID, o.PaymentStatus)
		}
		o.PaymentStatus = status
		o.Status = order.StatusAfterPayment(o.Status, status)
		o.UpdatedAt = h.now()
		return nil
	})
	if err != nil {
		return nil, unexpected("update payment status", err)
	}

	h.events.StatusUpdated(ctx, updated)
	h.events.PaymentUpdated(ctx, updated)
	return updated, nil
}

// UpdatePayment merges payment metadata.
func (h *Handler) UpdatePayment(ctx context.Context, id string, cmd UpdatePayment) (*order.Order, error) {
	if cmd.Method != nil && !cmd.Method.Valid() {
		return nil, fmt.Errorf("%w: orderPaymentMethod: unknown method %q", order.ErrValidation, *cmd.Method)
	}
	if cmd.Status != nil && !cmd.Status.Valid() {
		return nil, fmt.Errorf("%w: paymentStatus: unknown status %q", order.ErrValidation, *cmd.Status)
	}
	if cmd.Method != nil && *cmd.Method == order.MethodTransfer && blank(cmd.HolderName) && blank(cmd.ReceiptURL) {
		return nil, order.ErrMissingTransferProof
	}

	updated, err := h.orders.Update(ctx, id, func(o *order.Order) error {
		if cmd.Method != nil {
			o.PaymentMethod = *cmd.Method
		}
		if cmd.Status != nil {
			o.PaymentStatus = *cmd.Status
		}
		if cmd.ReceiptURL != nil {
			o.PaymentReceiptURL = *cmd.ReceiptURL
		}
		if cmd.Instructions != nil {
			o.PaymentInstructions = *cmd.Instructions
		}
		if cmd.HolderName != nil {
			o.PaymentHolderName = *cmd.HolderName
		}
		o.UpdatedAt = h.now()
		return nil
	})
	if err != nil {
		return nil, unexpected("update payment", err)
	}

	h.events.PaymentUpdated(ctx, updated)
	return updated, nil
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

// AssignDeliveryCompany attaches a delivery company and confirms the order.
func (h *Handler) AssignDeliveryCompany(ctx context.Context, orderID, companyID string) (*order.Order, error) {
	if strings.TrimSpace(companyID) == "" {
		return nil, fmt.Errorf("%w: deliveryCompanyId: is required", order.ErrValidation)
	}

	ok, err := h.companies.Exists(ctx, companyID)
	if err != nil {
		return nil, unexpected("resolve delivery company", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", order.ErrUnknownDeliveryCompany, companyID)
	}

	updated, err := h.orders.Update(ctx, orderID, func(o *order.Order) error {
		if err := h.checkTransition(o, order.StatusConfirmed); err != nil {
			return err
		}
		o.DeliveryCompanyID = companyID
		o.Status = order.StatusConfirmed
		o.UpdatedAt = h.now()
		return nil
	})
	if err != nil {
		return nil, unexpected("assign delivery company", err)
	}

	log.Printf("[Order] Assigned order %s to delivery company %s", updated.ID, companyID)
	h.events.DeliveryAssigned(ctx, updated)
	return updated, nil
}

// Remove hard-deletes an order and its children.
func (h *Handler) Remove(ctx context.Context, id string) error {
	if err := h.orders.Delete(ctx, id); err != nil {
		return unexpected("delete order", err)
	}
	log.Printf("[Order] Deleted order %s", id)
	return nil
}

// AddDiscount attaches a discount to an existing order.
func (h *Handler) AddDiscount(ctx context.Context, orderID string, cmd AddDiscount) (*order.Order, error) {
	d := order.Discount{
		Amount:     cmd.Amount,
		Type:       cmd.Type,
		Notes:      cmd.Notes,
		AbsorbedBy: cmd.AbsorbedBy,
		CreatedAt:  h.now(),
	}
	if err := order.ValidateDiscount(d); err != nil {
		return nil, err
	}

	if err := h.orders.AddDiscount(ctx, orderID, &d); err != nil {
		return nil, unexpected("add discount", err)
	}
	updated, err := h.orders.Get(ctx, orderID)
	if err != nil {
		return nil, unexpected("reload order", err)
	}

	h.events.OrderUpdated(ctx, updated)
	return updated, nil
}

// unexpected passes classified domain errors through and wraps everything
// else as ErrUnexpected.
func unexpected(op string, err error) error {
	if order.KindOf(err) != order.KindUnexpected {
		return err
	}
	log.Printf("[Order] %s failed: %v", op, err)
	return fmt.Errorf("%w: %s: %v", order.ErrUnexpected, op, err)
}
