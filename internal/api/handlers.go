package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/marketplace-orders/internal/api/middleware"
	"github.com/example/marketplace-orders/internal/auth"
	"github.com/example/marketplace-orders/internal/command"
	"github.com/example/marketplace-orders/internal/delivery"
	"github.com/example/marketplace-orders/internal/domain/order"
	"github.com/example/marketplace-orders/internal/query"
)

var errForbidden = errors.New("forbidden")

// access is how closely the caller must be tied to an order. Admins pass
// every level.
type access int

const (
	anyParty access = iota // customer, business or assigned delivery company
	payer                  // customer or business
	merchant               // business only
)

// Handlers serves the order routes.
type Handlers struct {
	cmdHandler   *command.Handler
	queryHandler *query.Handler
	coordinator  *delivery.Coordinator
}

// NewHandlers creates the HTTP handlers. The coordinator serves the
// delivery routes.
func NewHandlers(cmdHandler *command.Handler, queryHandler *query.Handler, coordinator *delivery.Coordinator) *Handlers {
	return &Handlers{
		cmdHandler:   cmdHandler,
		queryHandler: queryHandler,
		coordinator:  coordinator,
	}
}

// Creation

func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, h.cmdHandler.Create)
}

// CreateFullOrder creates an order with its items in one transaction.
func (h *Handlers) CreateFullOrder(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, h.cmdHandler.CreateFull)
}

func (h *Handlers) create(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, cmd command.CreateOrder) (*order.Order, error)) {
	var cmd command.CreateOrder
	if !decode(w, r, &cmd) {
		return
	}
	// Customers always order for themselves
	if claims, ok := middleware.GetUserFromContext(r.Context()); ok && claims.Role == auth.RoleUser {
		cmd.UserID = claims.UserID
	}

	o, err := fn(r.Context(), cmd)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, o)
}

// Reads

func (h *Handlers) GetOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.queryHandler.FindAll(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.authorizeOrder(r, anyParty)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *Handlers) GetBusinessOrders(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r)
	if err != nil {
		respondError(w, err)
		return
	}
	orders, err := h.queryHandler.FindByBusiness(r.Context(), r.PathValue("businessId"), opts)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *Handlers) SyncBusinessOrders(w http.ResponseWriter, r *http.Request) {
	lastSync, err := optionalTime(r, "lastSyncTime")
	if err != nil {
		respondError(w, err)
		return
	}
	orders, err := h.queryHandler.SyncByBusiness(r.Context(), r.PathValue("businessId"), lastSync)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *Handlers) GetUserOrders(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r)
	if err != nil {
		respondError(w, err)
		return
	}
	orders, err := h.queryHandler.FindByUser(r.Context(), r.PathValue("userId"), opts)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *Handlers) GetDeliveryOrders(w http.ResponseWriter, r *http.Request) {
	companyID := r.PathValue("companyId")
	opts, err := listOptions(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var orders []*order.Order
	if opts == (query.ListOptions{}) {
		orders, err = h.coordinator.ActiveOrders(r.Context(), companyID)
	} else {
		orders, err = h.queryHandler.FindByDeliveryCompany(r.Context(), companyID, opts)
	}
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

// GetAttentionOrders serves both the attention list and its incremental
// sync, depending on lastSyncTime.
func (h *Handlers) GetAttentionOrders(w http.ResponseWriter, r *http.Request) {
	businessIDs := splitIDs(r.URL.Query().Get("businessIds"))
	claims, _ := middleware.GetUserFromContext(r.Context())
	for _, id := range businessIDs {
		if claims == nil || !claims.CanActAs(auth.RoleBusiness, id) {
			respondError(w, fmt.Errorf("%w: business %s", errForbidden, id))
			return
		}
	}

	lastSync, err := optionalTime(r, "lastSyncTime")
	if err != nil {
		respondError(w, err)
		return
	}

	var orders []*order.Order
	if lastSync == nil {
		orders, err = h.queryHandler.FindMerchantAttentionOrders(r.Context(), businessIDs)
	} else {
		orders, err = h.queryHandler.SyncMerchantAttentionOrders(r.Context(), businessIDs, lastSync)
	}
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

// Writes

func (h *Handlers) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	if _, err := h.authorizeOrder(r, merchant); err != nil {
		respondError(w, err)
		return
	}
	var cmd command.UpdateOrder
	if !decode(w, r, &cmd) {
		return
	}
	o, err := h.cmdHandler.Update(r.Context(), r.PathValue("id"), cmd)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *Handlers) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if _, err := h.authorizeOrder(r, merchant); err != nil {
		respondError(w, err)
		return
	}
	var req struct {
		Status order.Status `json:"status"`
	}
	if !decode(w, r, &req) {
		return
	}
	o, err := h.cmdHandler.UpdateStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *Handlers) UpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	if _, err := h.authorizeOrder(r, merchant); err != nil {
		respondError(w, err)
		return
	}
	var req struct {
		PaymentStatus order.PaymentStatus `json:"paymentStatus"`
	}
	if !decode(w, r, &req) {
		return
	}
	o, err := h.cmdHandler.UpdatePaymentStatus(r.Context(), r.PathValue("id"), req.PaymentStatus)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

// UpdatePayment lets the customer change the method and attach proof.
// Moving the payment status stays with the business.
func (h *Handlers) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	var cmd command.UpdatePayment
	if !decode(w, r, &cmd) {
		return
	}
	level := payer
	if cmd.Status != nil {
		level = merchant
	}
	if _, err := h.authorizeOrder(r, level); err != nil {
		respondError(w, err)
		return
	}
	o, err := h.cmdHandler.UpdatePayment(r.Context(), r.PathValue("id"), cmd)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *Handlers) AddDiscount(w http.ResponseWriter, r *http.Request) {
	if _, err := h.authorizeOrder(r, merchant); err != nil {
		respondError(w, err)
		return
	}
	var cmd command.AddDiscount
	if !decode(w, r, &cmd) {
		return
	}
	o, err := h.cmdHandler.AddDiscount(r.Context(), r.PathValue("id"), cmd)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, o)
}

func (h *Handlers) AssignDeliveryCompany(w http.ResponseWriter, r *http.Request) {
	if _, err := h.authorizeOrder(r, merchant); err != nil {
		respondError(w, err)
		return
	}
	var req struct {
		DeliveryCompanyID string `json:"deliveryCompanyId"`
	}
	if !decode(w, r, &req) {
		return
	}
	o, err := h.coordinator.Assign(r.Context(), r.PathValue("id"), req.DeliveryCompanyID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *Handlers) ReportDeliveryStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status order.Status `json:"status"`
	}
	if !decode(w, r, &req) {
		return
	}
	o, err := h.coordinator.ReportStatus(r.Context(), r.PathValue("companyId"), r.PathValue("id"), req.Status)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *Handlers) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.cmdHandler.Remove(r.Context(), r.PathValue("id")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Health handles GET /health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Helpers

// authorizeOrder loads the order named by the path and checks the caller
// against its parties.
func (h *Handlers) authorizeOrder(r *http.Request, level access) (*order.Order, error) {
	id := r.PathValue("id")
	o, err := h.queryHandler.FindOne(r.Context(), id)
	if err != nil {
		return nil, err
	}
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok || !mayAccess(claims, o, level) {
		return nil, fmt.Errorf("%w: order %s", errForbidden, id)
	}
	return o, nil
}

func mayAccess(c *auth.Claims, o *order.Order, level access) bool {
	switch level {
	case merchant:
		return c.CanActAs(auth.RoleBusiness, o.BusinessID)
	case payer:
		return c.CanActAs(auth.RoleBusiness, o.BusinessID) || c.CanActAs(auth.RoleUser, o.UserID)
	default:
		return c.CanAccessOrder(o.UserID, o.BusinessID, o.DeliveryCompanyID)
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, fmt.Errorf("%w: body: %v", order.ErrValidation, err))
		return false
	}
	return true
}

func listOptions(r *http.Request) (query.ListOptions, error) {
	var opts query.ListOptions
	if all := r.URL.Query().Get("all"); all != "" {
		b, err := strconv.ParseBool(all)
		if err != nil {
			return opts, fmt.Errorf("%w: all: %v", order.ErrValidation, err)
		}
		opts.All = b
	}
	since, err := optionalTime(r, "since")
	if err != nil {
		return opts, err
	}
	if since != nil {
		opts.Since = *since
	}
	return opts, nil
}

func optionalTime(r *http.Request, key string) (*time.Time, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: expected RFC3339 timestamp", order.ErrValidation, key)
	}
	return &t, nil
}

func splitIDs(value string) []string {
	var ids []string
	for _, id := range strings.Split(value, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError maps the error kind to a status code. Unexpected errors are
// reported without their details.
func respondError(w http.ResponseWriter, err error) {
	if errors.Is(err, errForbidden) {
		respondJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
		return
	}

	status := statusFor(order.KindOf(err))
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = order.ErrUnexpected.Error()
	}
	respondJSON(w, status, map[string]string{"error": message})
}

func statusFor(kind order.Kind) int {
	switch kind {
	case order.KindValidation:
		return http.StatusBadRequest
	case order.KindCatalogInconsistency, order.KindBusinessRuleViolation:
		return http.StatusUnprocessableEntity
	case order.KindNotFound:
		return http.StatusNotFound
	case order.KindIllegalStateTransition:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
