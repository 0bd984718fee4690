package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/example/marketplace-orders/internal/domain/order"
)

func TestOrderFilter_Matches(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	o := &order.Order{
		ID:                "o-1",
		BusinessID:        "b-1",
		UserID:            "u-1",
		DeliveryCompanyID: "d-1",
		Status:            order.StatusPending,
		PaymentMethod:     order.MethodTransfer,
		PaymentStatus:     order.PaymentInProgress,
		CreatedAt:         base,
		UpdatedAt:         base.Add(time.Hour),
	}

	tests := []struct {
		name   string
		filter OrderFilter
		want   bool
	}{
		{"empty filter", OrderFilter{}, true},
		{"business match", OrderFilter{BusinessIDs: []string{"b-2", "b-1"}}, true},
		{"business mismatch", OrderFilter{BusinessIDs: []string{"b-2"}}, false},
		{"user mismatch", OrderFilter{UserID: "u-2"}, false},
		{"delivery match", OrderFilter{DeliveryCompanyID: "d-1"}, true},
		{"created from inclusive", OrderFilter{CreatedFrom: base}, true},
		{"created from after", OrderFilter{CreatedFrom: base.Add(time.Minute)}, false},
		{"changed after by update", OrderFilter{ChangedAfter: base.Add(30 * time.Minute)}, true},
		{"changed after is strict", OrderFilter{ChangedAfter: base.Add(time.Hour)}, false},
		{"status match", OrderFilter{Statuses: []order.Status{order.StatusPending}}, true},
		{"status mismatch", OrderFilter{Statuses: []order.Status{order.StatusConfirmed}}, false},
		{"attention transfer in progress", OrderFilter{AttentionOnly: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(o))
		})
	}
}

func TestOrderFilter_Matches_AttentionExcludesPendingTransfer(t *testing.T) {
	o := &order.Order{PaymentMethod: order.MethodTransfer, PaymentStatus: order.PaymentPending}
	assert.False(t, OrderFilter{AttentionOnly: true}.Matches(o))

	o.PaymentMethod = order.MethodCash
	assert.True(t, OrderFilter{AttentionOnly: true}.Matches(o))
}

func TestSortOrders(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := &order.Order{ID: "a", CreatedAt: base, UpdatedAt: base.Add(3 * time.Hour)}
	b := &order.Order{ID: "b", CreatedAt: base.Add(time.Hour), UpdatedAt: base.Add(time.Hour)}
	c := &order.Order{ID: "c", CreatedAt: base.Add(2 * time.Hour), UpdatedAt: base.Add(2 * time.Hour)}

	byCreated := []*order.Order{a, b, c}
	SortOrders(byCreated, SortCreatedDesc)
	assert.Equal(t, []string{"c", "b", "a"}, ids(byCreated))

	byUpdated := []*order.Order{a, b, c}
	SortOrders(byUpdated, SortUpdatedDesc)
	assert.Equal(t, []string{"a", "c", "b"}, ids(byUpdated))
}

func TestBuildListQuery(t *testing.T) {
	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	query, args := buildListQuery(OrderFilter{
		BusinessIDs:   []string{"b-1"},
		ChangedAfter:  since,
		Statuses:      []order.Status{order.StatusPending},
		AttentionOnly: true,
		Sort:          SortUpdatedDesc,
	})

	assert.Contains(t, query, "business_id = ANY($1)")
	assert.Contains(t, query, "(created_at > $2 OR updated_at > $2)")
	assert.Contains(t, query, "status = ANY($3)")
	assert.Contains(t, query, "payment_status <> $6")
	assert.Contains(t, query, "ORDER BY updated_at DESC, created_at DESC")
	assert.Len(t, args, 6)
	assert.Equal(t, since, args[1])
}

func TestBuildListQuery_NoFilter(t *testing.T) {
	query, args := buildListQuery(OrderFilter{})
	assert.NotContains(t, query, "WHERE")
	assert.Contains(t, query, "ORDER BY created_at DESC")
	assert.Empty(t, args)
}

func ids(orders []*order.Order) []string {
	out := make([]string, len(orders))
	for i, o := range orders {
		out[i] = o.ID
	}
	return out
}
