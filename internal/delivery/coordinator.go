// Package delivery is the delivery companies' view of the order engine.
package delivery

import (
	"context"
	"fmt"
	"log"
	"slices"

	"github.com/example/marketplace-orders/internal/domain/order"
	"github.com/example/marketplace-orders/internal/query"
)

var (
	ErrOrderNotAssigned = fmt.Errorf("%w: order is not assigned to this delivery company", order.ErrBusinessRule)
	ErrStatusNotAllowed = fmt.Errorf("%w: status not allowed for delivery company", order.ErrBusinessRule)
)

// ReportableStatuses are the statuses a delivery company may set.
var ReportableStatuses = []order.Status{
	order.StatusOutForDelivery,
	order.StatusDelivered,
	order.StatusCancelledByDelivery,
}

// Commands is the part of the command handler the coordinator drives.
type Commands interface {
	AssignDeliveryCompany(ctx context.Context, orderID, companyID string) (*order.Order, error)
	UpdateStatus(ctx context.Context, id string, status order.Status) (*order.Order, error)
}

type Queries interface {
	FindOne(ctx context.Context, id string) (*order.Order, error)
	FindByDeliveryCompany(ctx context.Context, companyID string, opts query.ListOptions) ([]*order.Order, error)
}

// Coordinator serves delivery companies: assignment, their active orders
// and the statuses they report.
type Coordinator struct {
	commands Commands
	queries  Queries
}

// NewCoordinator creates a new coordinator
func NewCoordinator(commands Commands, queries Queries) *Coordinator {
	return &Coordinator{commands: commands, queries: queries}
}

// Assign attaches the company to the order.
func (c *Coordinator) Assign(ctx context.Context, orderID, companyID string) (*order.Order, error) {
	return c.commands.AssignDeliveryCompany(ctx, orderID, companyID)
}

// ActiveOrders lists the company's orders inside the operational window.
func (c *Coordinator) ActiveOrders(ctx context.Context, companyID string) ([]*order.Order, error) {
	return c.queries.FindByDeliveryCompany(ctx, companyID, query.ListOptions{})
}

// ReportStatus moves an order assigned to companyID along the delivery leg.
func (c *Coordinator) ReportStatus(ctx context.Context, companyID, orderID string, status order.Status) (*order.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: status: unknown status %q", order.ErrValidation, status)
	}
	if !slices.Contains(ReportableStatuses, status) {
		return nil, fmt.Errorf("%w: %s", ErrStatusNotAllowed, status)
	}

	o, err := c.queries.FindOne(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.DeliveryCompanyID != companyID {
		return nil, fmt.Errorf("%w: order %s", ErrOrderNotAssigned, orderID)
	}

	updated, err := c.commands.UpdateStatus(ctx, orderID, status)
	if err != nil {
		return nil, err
	}
	log.Printf("[Delivery] Company %s reported order %s as %s", companyID, orderID, status)
	return updated, nil
}
