package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
	lookupTimeout  = 5 * time.Second
)

var (
	ErrClientClosed = errors.New("client closed")
	ErrSlowClient   = errors.New("client send buffer full")
)

// Authorizer decides which rooms a client may join.
type Authorizer interface {
	CanActAs(role, id string) bool
	// CanFollowOrder reports whether the caller is a party to the order.
	CanFollowOrder(ctx context.Context, orderID string) bool
}

// Client is a WebSocket connection registered with a Hub.
type Client struct {
	id    string
	ws    *websocket.Conn
	hub   *Hub
	authz Authorizer

	send      chan Frame
	done      chan struct{}
	closeOnce sync.Once
	// set once before done is closed
	closeCode   int
	closeReason string
}

// NewClient creates a client for an upgraded connection. Call Run to
// serve it.
func NewClient(ws *websocket.Conn, hub *Hub, authz Authorizer) *Client {
	return &Client{
		id:    uuid.NewString(),
		ws:    ws,
		hub:   hub,
		authz: authz,
		send:  make(chan Frame, sendBuffer),
		done:  make(chan struct{}),
	}
}

// ID identifies the connection inside the hub.
func (c *Client) ID() string { return c.id }

// Send queues a frame without blocking. A client that cannot keep up is
// closed with CloseTryAgainLater, so the peer knows it missed events and
// must resync before joining again.
func (c *Client) Send(f Frame) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}
	select {
	case c.send <- f:
		return nil
	case <-c.done:
		return ErrClientClosed
	default:
		c.shutdown(websocket.CloseTryAgainLater, "missed events, resync required")
		return ErrSlowClient
	}
}

// Run serves the connection until the peer goes away.
func (c *Client) Run() {
	if m := c.hub.metrics; m != nil {
		m.ConnectedClients.Inc()
		defer m.ConnectedClients.Dec()
	}
	go c.writePump()
	c.readPump()
}

// shutdown stops delivery and leaves every room. The write pump sends the
// close frame and closes the socket.
func (c *Client) shutdown(code int, reason string) {
	c.closeOnce.Do(func() {
		c.closeCode, c.closeReason = code, reason
		close(c.done)
		c.hub.Disconnect(c)
	})
}

func (c *Client) readPump() {
	defer c.shutdown(websocket.CloseNormalClosure, "")

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var f Frame
		if err := c.ws.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[Broadcast] Client %s read error: %v", c.id, err)
			}
			return
		}
		c.handle(f)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.shutdown(websocket.CloseGoingAway, "")
		_ = c.ws.Close()
	}()

	for {
		// Queued frames are dropped once the client is shut down
		select {
		case <-c.done:
			c.writeClose()
			return
		default:
		}

		select {
		case f := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(f); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.writeClose()
			return
		}
	}
}

func (c *Client) writeClose() {
	msg := websocket.FormatCloseMessage(c.closeCode, c.closeReason)
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}

func (c *Client) handle(f Frame) {
	switch f.Event {
	case EventJoinRole:
		var req JoinRoleRequest
		if err := json.Unmarshal(f.Data, &req); err != nil {
			c.reply(EventError, ErrorReply{Message: "invalid join_role payload"})
			return
		}
		room, err := RoomForRole(req.Role, req.ID)
		if err != nil {
			c.reply(EventError, ErrorReply{Message: err.Error()})
			return
		}
		if c.authz == nil || !c.authz.CanActAs(req.Role, req.ID) {
			c.reply(EventError, ErrorReply{Message: "not allowed to join " + room})
			return
		}
		c.join(room)

	case EventJoinOrder:
		var req JoinOrderRequest
		if err := json.Unmarshal(f.Data, &req); err != nil || req.OrderID == "" {
			c.reply(EventError, ErrorReply{Message: "invalid join_order payload"})
			return
		}
		room := OrderRoom(req.OrderID)
		if !c.canFollow(req.OrderID) {
			c.reply(EventError, ErrorReply{Message: "not allowed to join " + room})
			return
		}
		c.join(room)

	case EventLeaveRoom:
		var req LeaveRoomRequest
		if err := json.Unmarshal(f.Data, &req); err != nil || req.Room == "" {
			c.reply(EventError, ErrorReply{Message: "invalid leave_room payload"})
			return
		}
		c.hub.LeaveRoom(c, req.Room)

	default:
		c.reply(EventError, ErrorReply{Message: "unknown event " + f.Event})
	}
}

func (c *Client) canFollow(orderID string) bool {
	if c.authz == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()
	return c.authz.CanFollowOrder(ctx, orderID)
}

func (c *Client) join(room string) {
	c.hub.JoinRoom(c, room)
	c.reply(EventJoined, JoinedReply{Room: room})
}

func (c *Client) reply(event string, payload any) {
	f, err := NewFrame(event, payload)
	if err != nil {
		return
	}
	if err := c.Send(f); err != nil {
		log.Printf("[Broadcast] Client %s reply %s dropped: %v", c.id, event, err)
	}
}
