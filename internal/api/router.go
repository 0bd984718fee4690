package api

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/example/marketplace-orders/internal/api/middleware"
	"github.com/example/marketplace-orders/internal/auth"
	"github.com/example/marketplace-orders/internal/metrics"
)

// RouterConfig wires the router. WebSocket and Gatherer are optional.
type RouterConfig struct {
	Handlers   *Handlers
	WebSocket  http.Handler
	JWTService *auth.JWTService
	Metrics    *metrics.Metrics
	Gatherer   prometheus.Gatherer
}

type chain []func(http.Handler) http.Handler

func (c chain) then(h http.Handler) http.Handler {
	for i := len(c) - 1; i >= 0; i-- {
		h = c[i](h)
	}
	return h
}

// NewRouter creates the HTTP router with all routes
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	h := cfg.Handlers

	authn := middleware.AuthMiddleware(cfg.JWTService)
	admin := middleware.RequireRole(auth.RoleAdmin)
	staff := middleware.RequireRole(auth.RoleAdmin, auth.RoleBusiness)
	business := middleware.RequireActor(auth.RoleBusiness, "businessId")
	customer := middleware.RequireActor(auth.RoleUser, "userId")
	courier := middleware.RequireActor(auth.RoleDelivery, "companyId")

	route := func(pattern, name string, handler http.Handler, mws ...func(http.Handler) http.Handler) {
		if cfg.Metrics != nil {
			mws = append(chain{middleware.Instrument(cfg.Metrics, name)}, mws...)
		}
		mux.Handle(pattern, chain(mws).then(handler))
	}
	fn := func(f http.HandlerFunc) http.Handler { return f }

	// Orders
	route("POST /orders", "create_order", fn(h.CreateOrder), authn, admin)
	route("POST /orders/full", "create_full_order", fn(h.CreateFullOrder), authn)
	route("GET /orders", "list_orders", fn(h.GetOrders), authn, admin)
	route("GET /orders/attention", "attention_orders", fn(h.GetAttentionOrders), authn)
	route("GET /orders/{id}", "get_order", fn(h.GetOrder), authn)
	route("PATCH /orders/{id}", "update_order", fn(h.UpdateOrder), authn, staff)
	route("DELETE /orders/{id}", "delete_order", fn(h.DeleteOrder), authn, admin)
	route("PATCH /orders/{id}/status", "update_status", fn(h.UpdateStatus), authn, staff)
	route("PATCH /orders/{id}/payment-status", "update_payment_status", fn(h.UpdatePaymentStatus), authn, staff)
	route("PATCH /orders/{id}/payment", "update_payment", fn(h.UpdatePayment), authn)
	route("POST /orders/{id}/discounts", "add_discount", fn(h.AddDiscount), authn, staff)
	route("POST /orders/{id}/delivery-company", "assign_delivery", fn(h.AssignDeliveryCompany), authn, staff)

	// Scoped lists
	route("GET /orders/business/{businessId}", "business_orders", fn(h.GetBusinessOrders), authn, business)
	route("GET /orders/business/{businessId}/sync", "business_sync", fn(h.SyncBusinessOrders), authn, business)
	route("GET /orders/user/{userId}", "user_orders", fn(h.GetUserOrders), authn, customer)
	route("GET /orders/delivery/{companyId}", "delivery_orders", fn(h.GetDeliveryOrders), authn, courier)

	// Delivery coordinator
	route("POST /delivery/{companyId}/orders/{id}/status", "delivery_status", fn(h.ReportDeliveryStatus), authn, courier)

	// Realtime
	if cfg.WebSocket != nil {
		route("GET /ws", "websocket", cfg.WebSocket, authn)
	}

	// Operations
	route("GET /health", "health", fn(h.Health))
	if cfg.Gatherer != nil {
		mux.Handle("GET /metrics", metrics.Handler(cfg.Gatherer))
	}

	return withLogging(mux)
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[API] %s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
