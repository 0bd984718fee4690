package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/marketplace-orders/internal/metrics"
)

type fakeConn struct {
	mu     sync.Mutex
	id     string
	frames []Frame
	err    error
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) received() []Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Frame(nil), c.frames...)
}

func TestRoomForRole(t *testing.T) {
	room, err := RoomForRole(RoleUser, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "user-u-1", room)

	room, err = RoomForRole(RoleBusiness, "b-1")
	require.NoError(t, err)
	assert.Equal(t, "business-b-1", room)

	room, err = RoomForRole(RoleDelivery, "d-1")
	require.NoError(t, err)
	assert.Equal(t, "delivery-d-1", room)

	_, err = RoomForRole("kitchen", "k-1")
	assert.ErrorIs(t, err, ErrUnknownRole)

	_, err = RoomForRole(RoleUser, "")
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestHub_PublishOnlyReachesRoomMembers(t *testing.T) {
	hub := NewHub(nil)
	inside := &fakeConn{id: "c1"}
	outside := &fakeConn{id: "c2"}
	hub.JoinRoom(inside, "business-b-1")
	hub.JoinRoom(outside, "user-u-1")

	err := hub.Publish(context.Background(), "business-b-1", EventNewOrder, map[string]string{"id": "o-1"})
	require.NoError(t, err)

	frames := inside.received()
	require.Len(t, frames, 1)
	assert.Equal(t, EventNewOrder, frames[0].Event)
	assert.JSONEq(t, `{"id":"o-1"}`, string(frames[0].Data))
	assert.Empty(t, outside.received())
}

func TestHub_PublishToEmptyRoom(t *testing.T) {
	hub := NewHub(nil)
	assert.NoError(t, hub.Publish(context.Background(), "order-none", EventOrderUpdated, struct{}{}))
}

func TestHub_PublishEncodingError(t *testing.T) {
	hub := NewHub(nil)
	err := hub.Publish(context.Background(), "order-1", EventOrderUpdated, make(chan int))
	assert.Error(t, err)
}

func TestHub_LeaveRoom(t *testing.T) {
	hub := NewHub(nil)
	c := &fakeConn{id: "c1"}
	hub.JoinRoom(c, "order-1")
	hub.JoinRoom(c, "user-u-1")

	hub.LeaveRoom(c, "order-1")

	assert.Equal(t, 0, hub.Members("order-1"))
	assert.Equal(t, []string{"user-u-1"}, hub.Rooms(c))
}

func TestHub_DropsFailingClients(t *testing.T) {
	hub := NewHub(nil)
	broken := &fakeConn{id: "broken", err: errors.New("closed pipe")}
	healthy := &fakeConn{id: "healthy"}
	hub.JoinRoom(broken, "business-b-1")
	hub.JoinRoom(broken, "order-1")
	hub.JoinRoom(healthy, "business-b-1")

	require.NoError(t, hub.Publish(context.Background(), "business-b-1", EventNewOrder, struct{}{}))

	assert.Equal(t, 1, hub.Members("business-b-1"))
	assert.Equal(t, 0, hub.Members("order-1"))
	assert.Empty(t, hub.Rooms(broken))
	assert.Len(t, healthy.received(), 1)
}

func TestHub_CountsEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	hub := NewHub(m)

	_ = hub.Publish(context.Background(), "order-1", EventOrderUpdated, struct{}{})
	_ = hub.Publish(context.Background(), "order-2", EventOrderUpdated, struct{}{})

	assert.Equal(t, float64(2), testutil.ToFloat64(m.BroadcastEvents.WithLabelValues(EventOrderUpdated)))
}

type fakeBus struct {
	keys     []string
	messages [][]byte
	err      error
}

func (b *fakeBus) Publish(ctx context.Context, key string, event any) error {
	if b.err != nil {
		return b.err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	b.keys = append(b.keys, key)
	b.messages = append(b.messages, data)
	return nil
}

func TestBusBroadcaster_RoundTrip(t *testing.T) {
	bus := &fakeBus{}
	hub := NewHub(nil)
	b := NewBusBroadcaster(bus, hub, "instance-a")
	c := &fakeConn{id: "c1"}
	b.JoinRoom(c, "user-u-1")

	require.NoError(t, b.Publish(context.Background(), "user-u-1", EventOrderCreated, map[string]string{"id": "o-1"}))

	// Nothing is delivered locally until the relay reads the message back.
	assert.Empty(t, c.received())
	require.Len(t, bus.messages, 1)
	assert.Equal(t, "user-u-1", bus.keys[0])

	require.NoError(t, b.HandleMessage(context.Background(), []byte(bus.keys[0]), bus.messages[0]))

	frames := c.received()
	require.Len(t, frames, 1)
	assert.Equal(t, EventOrderCreated, frames[0].Event)
	assert.JSONEq(t, `{"id":"o-1"}`, string(frames[0].Data))
}

func TestBusBroadcaster_FallsBackToLocalDelivery(t *testing.T) {
	bus := &fakeBus{err: errors.New("broker unavailable")}
	hub := NewHub(nil)
	b := NewBusBroadcaster(bus, hub, "instance-a")
	c := &fakeConn{id: "c1"}
	b.JoinRoom(c, "order-1")

	err := b.Publish(context.Background(), "order-1", EventOrderUpdated, struct{}{})

	assert.Error(t, err)
	assert.Len(t, c.received(), 1)
}

func TestBusBroadcaster_HandleMessage_BadInput(t *testing.T) {
	b := NewBusBroadcaster(&fakeBus{}, NewHub(nil), "instance-a")

	assert.Error(t, b.HandleMessage(context.Background(), nil, []byte("{not json")))
	assert.NoError(t, b.HandleMessage(context.Background(), nil, []byte(`{"event":"x"}`)))
}
