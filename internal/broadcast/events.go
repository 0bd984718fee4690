package broadcast

import (
	"time"

	"github.com/example/marketplace-orders/internal/domain/order"
)

// Event names
const (
	EventNewOrder              = "new_order"
	EventOrderCreated          = "order_created"
	EventOrderAssigned         = "newOrderAssigned"
	EventOrderStatusUpdated    = "order_status_updated"
	EventPaymentUpdated        = "payment_updated"
	EventUserOrderNotification = "user_order_notification"
	EventOrderUpdated          = "order_updated"
)

// Handshake frames
const (
	EventJoinRole  = "join_role"
	EventJoinOrder = "join_order"
	EventLeaveRoom = "leave_room"
	EventJoined    = "joined"
	EventError     = "error"
)

type StatusPayload struct {
	OrderID string       `json:"orderId"`
	Status  order.Status `json:"status"`
}

type PaymentPayload struct {
	OrderID           string              `json:"orderId"`
	PaymentStatus     order.PaymentStatus `json:"paymentStatus"`
	PaymentReceiptURL string              `json:"paymentReceiptUrl"`
}

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// UserNotification is the customer-facing message for a status change.
type UserNotification struct {
	ID          string    `json:"id"`
	Category    string    `json:"category"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	RecipientID string    `json:"recipientId"`
	Priority    Priority  `json:"priority"`
}

type notificationText struct {
	title    string
	message  string
	priority Priority
}

// userNotifications lists the statuses a customer hears about. Every other
// status produces no notification.
var userNotifications = map[order.Status]notificationText{
	order.StatusReadyForCustomerPickup: {"Your order is ready", "Your order is ready for pickup.", PriorityHigh},
	order.StatusOutForDelivery:         {"Your order is on its way", "Your order is out for delivery.", PriorityMedium},
	order.StatusDelivered:              {"Order delivered", "Your order has been delivered. Enjoy!", PriorityLow},
	order.StatusCancelledByBusiness:    {"Order cancelled", "The business cancelled your order.", PriorityHigh},
	order.StatusCancelledByDelivery:    {"Order cancelled", "The delivery company cancelled your order.", PriorityHigh},
}

type JoinRoleRequest struct {
	Role string `json:"role"`
	ID   string `json:"id"`
}

type JoinOrderRequest struct {
	OrderID string `json:"orderId"`
}

type LeaveRoomRequest struct {
	Room string `json:"room"`
}

type JoinedReply struct {
	Room string `json:"room"`
}

type ErrorReply struct {
	Message string `json:"message"`
}
