package broadcast

import (
	"context"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roleAuthorizer struct {
	role   string
	id     string
	orders []string
}

func (a roleAuthorizer) CanActAs(role, id string) bool {
	return role == a.role && id == a.id
}

func (a roleAuthorizer) CanFollowOrder(_ context.Context, orderID string) bool {
	return slices.Contains(a.orders, orderID)
}

func startClientServer(t *testing.T, hub *Hub, authz Authorizer) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		NewClient(ws, hub, authz).Run()
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func sendFrame(t *testing.T, ws *websocket.Conn, event string, payload any) {
	t.Helper()
	f, err := NewFrame(event, payload)
	require.NoError(t, err)
	require.NoError(t, ws.WriteJSON(f))
}

func readFrame(t *testing.T, ws *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f Frame
	require.NoError(t, ws.ReadJSON(&f))
	return f
}

func TestClient_JoinRoleAndReceive(t *testing.T) {
	hub := NewHub(nil)
	ws := startClientServer(t, hub, roleAuthorizer{role: RoleBusiness, id: "b-1"})

	sendFrame(t, ws, EventJoinRole, JoinRoleRequest{Role: RoleBusiness, ID: "b-1"})
	joined := readFrame(t, ws)
	assert.Equal(t, EventJoined, joined.Event)
	assert.JSONEq(t, `{"room":"business-b-1"}`, string(joined.Data))

	require.NoError(t, hub.Publish(context.Background(), "business-b-1", EventNewOrder, map[string]string{"id": "o-1"}))
	f := readFrame(t, ws)
	assert.Equal(t, EventNewOrder, f.Event)
	assert.JSONEq(t, `{"id":"o-1"}`, string(f.Data))
}

func TestClient_JoinRoleForbidden(t *testing.T) {
	hub := NewHub(nil)
	ws := startClientServer(t, hub, roleAuthorizer{role: RoleUser, id: "u-1"})

	sendFrame(t, ws, EventJoinRole, JoinRoleRequest{Role: RoleUser, ID: "u-2"})
	f := readFrame(t, ws)

	assert.Equal(t, EventError, f.Event)
	assert.Equal(t, 0, hub.Members("user-u-2"))
}

func TestClient_JoinOrderAndLeave(t *testing.T) {
	hub := NewHub(nil)
	ws := startClientServer(t, hub, roleAuthorizer{orders: []string{"o-9"}})

	sendFrame(t, ws, EventJoinOrder, JoinOrderRequest{OrderID: "o-9"})
	joined := readFrame(t, ws)
	require.Equal(t, EventJoined, joined.Event)
	assert.Equal(t, 1, hub.Members("order-o-9"))

	sendFrame(t, ws, EventLeaveRoom, LeaveRoomRequest{Room: "order-o-9"})
	sendFrame(t, ws, "ping_me", struct{}{})
	f := readFrame(t, ws)
	assert.Equal(t, EventError, f.Event)
	assert.Equal(t, 0, hub.Members("order-o-9"))
}

func TestClient_JoinOrderOfSomeoneElse(t *testing.T) {
	hub := NewHub(nil)
	ws := startClientServer(t, hub, roleAuthorizer{role: RoleUser, id: "u-1", orders: []string{"o-mine"}})

	sendFrame(t, ws, EventJoinOrder, JoinOrderRequest{OrderID: "o-theirs"})
	f := readFrame(t, ws)

	assert.Equal(t, EventError, f.Event)
	assert.JSONEq(t, `{"message":"not allowed to join order-o-theirs"}`, string(f.Data))
	assert.Equal(t, 0, hub.Members("order-o-theirs"))
}

func TestClient_SlowReaderIsClosed(t *testing.T) {
	hub := NewHub(nil)
	ws := startClientServer(t, hub, roleAuthorizer{orders: []string{"o-5"}})

	sendFrame(t, ws, EventJoinOrder, JoinOrderRequest{OrderID: "o-5"})
	readFrame(t, ws)
	require.Equal(t, 1, hub.Members("order-o-5"))

	// Large frames fill the socket buffers while the peer is not reading
	big, err := NewFrame(EventOrderUpdated, map[string]string{"note": strings.Repeat("x", 256<<10)})
	require.NoError(t, err)
	for i := 0; i < 10*sendBuffer && hub.Members("order-o-5") > 0; i++ {
		require.NoError(t, hub.Deliver("order-o-5", big))
	}
	require.Equal(t, 0, hub.Members("order-o-5"))

	var readErr error
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	for readErr == nil {
		_, _, readErr = ws.ReadMessage()
	}
	assert.True(t, websocket.IsCloseError(readErr, websocket.CloseTryAgainLater), "got %v", readErr)
}

func TestClient_DisconnectLeavesRooms(t *testing.T) {
	hub := NewHub(nil)
	ws := startClientServer(t, hub, roleAuthorizer{orders: []string{"o-1"}})

	sendFrame(t, ws, EventJoinOrder, JoinOrderRequest{OrderID: "o-1"})
	readFrame(t, ws)
	require.Equal(t, 1, hub.Members("order-o-1"))

	require.NoError(t, ws.Close())
	assert.Eventually(t, func() bool { return hub.Members("order-o-1") == 0 }, 2*time.Second, 10*time.Millisecond)
}
