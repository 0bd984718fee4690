// Package notification relays customer notifications from the order event
// bus to push delivery.
package notification

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"github.com/example/marketplace-orders/internal/broadcast"
)

// Handler forwards user_order_notification events read from the bus to a
// notification sink. Every other event is ignored.
type Handler struct {
	sink broadcast.NotificationSink
}

// NewHandler creates a handler forwarding notifications to sink.
func NewHandler(sink broadcast.NotificationSink) *Handler {
	return &Handler{sink: sink}
}

// HandleEvent processes one bus envelope from Kafka.
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var env broadcast.Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		log.Printf("[Notifier] Failed to unmarshal envelope: %v", err)
		return err
	}
	if env.Event != broadcast.EventUserOrderNotification {
		return nil
	}

	var n broadcast.UserNotification
	if err := json.Unmarshal(env.Data, &n); err != nil {
		log.Printf("[Notifier] Failed to unmarshal notification in %s: %v", env.Room, err)
		return err
	}
	if n.RecipientID == "" {
		n.RecipientID = strings.TrimPrefix(env.Room, "user-")
	}

	if err := h.sink.PublishNotification(ctx, n); err != nil {
		log.Printf("[Notifier] Failed to forward notification %s to %s: %v", n.ID, n.RecipientID, err)
		return err
	}
	log.Printf("[Notifier] Forwarded %s notification %s to %s", n.Priority, n.ID, n.RecipientID)
	return nil
}
