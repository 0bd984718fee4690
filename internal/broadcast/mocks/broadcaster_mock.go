package mocks

import (
	"context"
	"sync"

	"github.com/example/marketplace-orders/internal/broadcast"
)

// MockBroadcaster records every join and publish.
type MockBroadcaster struct {
	mu sync.Mutex

	JoinCalls    []JoinCall
	PublishCalls []PublishCall
	PublishErr   error
}

type JoinCall struct {
	ConnID string
	Room   string
}

type PublishCall struct {
	Room    string
	Event   string
	Payload any
}

// NewMockBroadcaster creates a recording broadcaster.
func NewMockBroadcaster() *MockBroadcaster {
	return &MockBroadcaster{
		JoinCalls:    make([]JoinCall, 0),
		PublishCalls: make([]PublishCall, 0),
	}
}

func (m *MockBroadcaster) JoinRoom(conn broadcast.Conn, room string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.JoinCalls = append(m.JoinCalls, JoinCall{ConnID: conn.ID(), Room: room})
}

func (m *MockBroadcaster) Publish(ctx context.Context, room, event string, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PublishCalls = append(m.PublishCalls, PublishCall{Room: room, Event: event, Payload: payload})
	return m.PublishErr
}

// To returns the calls published to room, in order.
func (m *MockBroadcaster) To(room string) []PublishCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var calls []PublishCall
	for _, c := range m.PublishCalls {
		if c.Room == room {
			calls = append(calls, c)
		}
	}
	return calls
}

// Events returns the event names published to room, in order.
func (m *MockBroadcaster) Events(room string) []string {
	var events []string
	for _, c := range m.To(room) {
		events = append(events, c.Event)
	}
	return events
}

// Reset clears recorded calls
func (m *MockBroadcaster) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.JoinCalls = make([]JoinCall, 0)
	m.PublishCalls = make([]PublishCall, 0)
}
