package broadcast

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/example/marketplace-orders/internal/domain/order"
)

// NotificationSink forwards customer notifications to external push
// delivery. It is optional.
type NotificationSink interface {
	PublishNotification(ctx context.Context, n UserNotification) error
}

// OrderEvents maps order changes to room events. Delivery failures are
// logged and never returned.
type OrderEvents struct {
	b    Broadcaster
	sink NotificationSink
	now  func() time.Time
}

// NewOrderEvents creates the order announcer. sink may be nil.
func NewOrderEvents(b Broadcaster, sink NotificationSink) *OrderEvents {
	return &OrderEvents{
		b:    b,
		sink: sink,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (e *OrderEvents) publish(ctx context.Context, room, event string, payload any) {
	if err := e.b.Publish(ctx, room, event, payload); err != nil {
		log.Printf("[Broadcast] Failed to publish %s to %s: %v", event, room, err)
	}
}

// OrderCreated tells the business about orders it can act on, and the
// customer about the rest.
func (e *OrderEvents) OrderCreated(ctx context.Context, o *order.Order) {
	if o.NotifiesBusiness() {
		e.publish(ctx, BusinessRoom(o.BusinessID), EventNewOrder, o)
		return
	}
	e.publish(ctx, UserRoom(o.UserID), EventOrderCreated, o)
}

func (e *OrderEvents) DeliveryAssigned(ctx context.Context, o *order.Order) {
	if o.DeliveryCompanyID == "" {
		return
	}
	e.publish(ctx, DeliveryRoom(o.DeliveryCompanyID), EventOrderAssigned, o)
}

func (e *OrderEvents) StatusUpdated(ctx context.Context, o *order.Order) {
	payload := StatusPayload{OrderID: o.ID, Status: o.Status}
	for _, room := range e.audience(o) {
		e.publish(ctx, room, EventOrderStatusUpdated, payload)
	}

	n, ok := e.userNotification(o)
	if !ok {
		return
	}
	e.publish(ctx, UserRoom(o.UserID), EventUserOrderNotification, n)
	if e.sink != nil {
		if err := e.sink.PublishNotification(ctx, n); err != nil {
			log.Printf("[Broadcast] Failed to forward notification %s for order %s: %v", n.ID, o.ID, err)
		}
	}
}

func (e *OrderEvents) PaymentUpdated(ctx context.Context, o *order.Order) {
	payload := PaymentPayload{
		OrderID:           o.ID,
		PaymentStatus:     o.PaymentStatus,
		PaymentReceiptURL: o.PaymentReceiptURL,
	}
	for _, room := range []string{UserRoom(o.UserID), BusinessRoom(o.BusinessID), OrderRoom(o.ID)} {
		e.publish(ctx, room, EventPaymentUpdated, payload)
	}
}

func (e *OrderEvents) OrderUpdated(ctx context.Context, o *order.Order) {
	e.publish(ctx, OrderRoom(o.ID), EventOrderUpdated, o)
}

func (e *OrderEvents) audience(o *order.Order) []string {
	rooms := []string{UserRoom(o.UserID), BusinessRoom(o.BusinessID)}
	if o.DeliveryCompanyID != "" {
		rooms = append(rooms, DeliveryRoom(o.DeliveryCompanyID))
	}
	return append(rooms, OrderRoom(o.ID))
}

func (e *OrderEvents) userNotification(o *order.Order) (UserNotification, bool) {
	text, ok := userNotifications[o.Status]
	if !ok {
		return UserNotification{}, false
	}
	return UserNotification{
		ID:          uuid.NewString(),
		Category:    "ORDER",
		Type:        "ORDER_STATUS",
		Title:       text.title,
		Message:     text.message,
		Timestamp:   e.now(),
		RecipientID: o.UserID,
		Priority:    text.priority,
	}, true
}
