package api

import (
	"context"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/example/marketplace-orders/internal/api/middleware"
	"github.com/example/marketplace-orders/internal/auth"
	"github.com/example/marketplace-orders/internal/broadcast"
	"github.com/example/marketplace-orders/internal/domain/order"
)

// OrderFinder loads a single order. *query.Handler satisfies it.
type OrderFinder interface {
	FindOne(ctx context.Context, id string) (*order.Order, error)
}

// WebSocketHandler upgrades authenticated requests and attaches the socket
// to the local hub. Room joins are checked against the caller's claims.
type WebSocketHandler struct {
	hub      *broadcast.Hub
	orders   OrderFinder
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates the upgrade handler. An empty allowedOrigins
// keeps gorilla's same-origin check.
func NewWebSocketHandler(hub *broadcast.Hub, orders OrderFinder, allowedOrigins []string) *WebSocketHandler {
	h := &WebSocketHandler{hub: hub, orders: orders}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	if len(allowedOrigins) > 0 {
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			return false
		}
	}
	return h
}

func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		log.Printf("[API] WebSocket upgrade failed: %v", err)
		return
	}

	client := broadcast.NewClient(ws, h.hub, socketAuthz{claims: claims, orders: h.orders})
	log.Printf("[API] WebSocket client %s connected (user %s, role %s)", client.ID(), claims.UserID, claims.Role)
	go client.Run()
}

// socketAuthz checks room joins for one connection.
type socketAuthz struct {
	claims *auth.Claims
	orders OrderFinder
}

func (a socketAuthz) CanActAs(role, id string) bool {
	return a.claims.CanActAs(role, id)
}

// CanFollowOrder lets the order's parties into its room. Unknown orders and
// lookup failures are refused.
func (a socketAuthz) CanFollowOrder(ctx context.Context, orderID string) bool {
	if a.orders == nil {
		return false
	}
	o, err := a.orders.FindOne(ctx, orderID)
	if err != nil {
		if order.KindOf(err) != order.KindNotFound {
			log.Printf("[API] Order lookup for room join failed: %v", err)
		}
		return false
	}
	return a.claims.CanAccessOrder(o.UserID, o.BusinessID, o.DeliveryCompanyID)
}
