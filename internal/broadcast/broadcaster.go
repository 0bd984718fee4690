// Package broadcast distributes order events to rooms of connected clients.
package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Frame is the JSON message exchanged with clients in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewFrame encodes payload as the frame data.
func NewFrame(event string, payload any) (Frame, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, fmt.Errorf("encode %s payload: %w", event, err)
	}
	return Frame{Event: event, Data: data}, nil
}

// Conn is one connected client.
type Conn interface {
	ID() string
	Send(f Frame) error
}

// Broadcaster is a room-addressed multicast channel.
type Broadcaster interface {
	JoinRoom(conn Conn, room string)
	Publish(ctx context.Context, room, event string, payload any) error
}

const (
	RoleUser     = "user"
	RoleBusiness = "business"
	RoleDelivery = "delivery"
)

var ErrUnknownRole = errors.New("unknown role")

func UserRoom(userID string) string        { return "user-" + userID }
func BusinessRoom(businessID string) string { return "business-" + businessID }
func DeliveryRoom(companyID string) string  { return "delivery-" + companyID }
func OrderRoom(orderID string) string       { return "order-" + orderID }

// RoomForRole maps a join_role handshake to its room.
func RoomForRole(role, id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("%w: empty id for role %q", ErrUnknownRole, role)
	}
	switch role {
	case RoleUser:
		return UserRoom(id), nil
	case RoleBusiness:
		return BusinessRoom(id), nil
	case RoleDelivery:
		return DeliveryRoom(id), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, role)
}
