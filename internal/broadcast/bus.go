package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
)

// BusPublisher writes a keyed message to the outbound event bus.
type BusPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// Envelope is the bus message for one room event.
type Envelope struct {
	Origin string          `json:"origin"`
	Room   string          `json:"room"`
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data"`
}

// BusBroadcaster publishes room events to the shared event bus and
// delivers events read back from the bus to the local hub. Every instance
// relays the whole topic, so a client connected to any instance receives
// events published by all of them.
type BusBroadcaster struct {
	bus      BusPublisher
	hub      *Hub
	instance string
}

// NewBusBroadcaster creates a broadcaster that publishes through bus.
// instance is recorded as the origin of every envelope.
func NewBusBroadcaster(bus BusPublisher, hub *Hub, instance string) *BusBroadcaster {
	return &BusBroadcaster{bus: bus, hub: hub, instance: instance}
}

func (b *BusBroadcaster) JoinRoom(conn Conn, room string) {
	b.hub.JoinRoom(conn, room)
}

// Publish writes the event to the bus keyed by room. When the bus write
// fails the event is still delivered to local clients.
func (b *BusBroadcaster) Publish(ctx context.Context, room, event string, payload any) error {
	frame, err := NewFrame(event, payload)
	if err != nil {
		return err
	}

	env := Envelope{Origin: b.instance, Room: room, Event: event, Data: frame.Data}
	if err := b.bus.Publish(ctx, room, env); err != nil {
		_ = b.hub.Deliver(room, frame)
		return fmt.Errorf("publish to bus: %w", err)
	}
	return nil
}

// HandleMessage is the relay consumer's message handler.
func (b *BusBroadcaster) HandleMessage(ctx context.Context, key, value []byte) error {
	var env Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if env.Room == "" || env.Event == "" {
		log.Printf("[Broadcast] Ignoring envelope without room or event (key=%s)", key)
		return nil
	}
	return b.hub.Deliver(env.Room, Frame{Event: env.Event, Data: env.Data})
}
