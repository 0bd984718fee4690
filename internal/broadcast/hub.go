package broadcast

import (
	"context"
	"log"
	"sync"

	"github.com/example/marketplace-orders/internal/metrics"
)

// Hub is the in-process room multiplexer. Delivery is best effort: a
// client whose Send fails is removed from every room. A Client that falls
// behind also closes its own socket.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[string]Conn // room -> conn id -> conn
	joined  map[string]map[string]bool // conn id -> rooms
	metrics *metrics.Metrics
}

// NewHub creates an empty hub. m may be nil.
func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		rooms:   make(map[string]map[string]Conn),
		joined:  make(map[string]map[string]bool),
		metrics: m,
	}
}

// JoinRoom adds the client to room. Joining twice is a no-op.
func (h *Hub) JoinRoom(conn Conn, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[room] == nil {
		h.rooms[room] = make(map[string]Conn)
	}
	h.rooms[room][conn.ID()] = conn

	if h.joined[conn.ID()] == nil {
		h.joined[conn.ID()] = make(map[string]bool)
	}
	h.joined[conn.ID()][room] = true
}

// LeaveRoom removes the client from room.
func (h *Hub) LeaveRoom(conn Conn, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leave(conn.ID(), room)
}

// Disconnect removes the client from every room it joined.
func (h *Hub) Disconnect(conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room := range h.joined[conn.ID()] {
		h.leave(conn.ID(), room)
	}
	delete(h.joined, conn.ID())
}

func (h *Hub) leave(connID, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	if rooms, ok := h.joined[connID]; ok {
		delete(rooms, room)
	}
}

// Publish sends the event to every client currently in room. An empty room
// is not an error.
func (h *Hub) Publish(ctx context.Context, room, event string, payload any) error {
	frame, err := NewFrame(event, payload)
	if err != nil {
		return err
	}
	return h.Deliver(room, frame)
}

// Deliver fans an encoded frame out to the room.
func (h *Hub) Deliver(room string, frame Frame) error {
	h.mu.RLock()
	members := make([]Conn, 0, len(h.rooms[room]))
	for _, c := range h.rooms[room] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	if h.metrics != nil {
		h.metrics.BroadcastEvents.WithLabelValues(frame.Event).Inc()
	}

	for _, c := range members {
		if err := c.Send(frame); err != nil {
			log.Printf("[Broadcast] Dropping client %s: %v", c.ID(), err)
			h.Disconnect(c)
		}
	}
	return nil
}

// Rooms returns the rooms the client has joined.
func (h *Hub) Rooms(conn Conn) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	rooms := make([]string, 0, len(h.joined[conn.ID()]))
	for room := range h.joined[conn.ID()] {
		rooms = append(rooms, room)
	}
	return rooms
}

// Members returns the number of clients in room.
func (h *Hub) Members(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
