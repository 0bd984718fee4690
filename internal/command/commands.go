package command

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/marketplace-orders/internal/domain/order"
)

// CreateOrder is the creation payload shared by Create and CreateFull.
type CreateOrder struct {
	UserID     string `json:"userId"`
	BusinessID string `json:"businessId"`

	CustomerName      string              `json:"customerName"`
	CustomerPhone     string              `json:"customerPhone"`
	CustomerAddress   string              `json:"customerAddress"`
	CustomerLatitude  decimal.NullDecimal `json:"customerLatitude"`
	CustomerLongitude decimal.NullDecimal `json:"customerLongitude"`

	BusinessName      string              `json:"businessName"`
	BusinessPhone     string              `json:"businessPhone"`
	BusinessAddress   string              `json:"businessAddress"`
	BusinessLatitude  decimal.NullDecimal `json:"businessLatitude"`
	BusinessLongitude decimal.NullDecimal `json:"businessLongitude"`

	Total             decimal.Decimal `json:"total"`
	TotalDeliveryCost decimal.Decimal `json:"totalDeliveryCost"`

	OrderPaymentMethod  order.PaymentMethod  `json:"orderPaymentMethod"`
	PaymentStatus       order.PaymentStatus  `json:"paymentStatus"`
	CadetPaymentPayer   order.Payer          `json:"cadetPaymentPayer"`
	CadetPaymentMethod  order.PaymentMethod  `json:"cadetPaymentMethod"`
	PaymentReceiptURL   string               `json:"paymentReceiptUrl"`
	PaymentInstructions string               `json:"paymentInstructions"`
	PaymentHolderName   string               `json:"paymentHolderName"`
	PaymentExpected     []order.PaymentEntry `json:"paymentExpected"`
	PaymentReceived     []order.PaymentEntry `json:"paymentReceived"`

	DeliveryType order.DeliveryType `json:"deliveryType"`
	Status       order.Status       `json:"status"`
	IsTest       bool               `json:"isTest"`
	Notes        string             `json:"notes"`

	Items []order.Item `json:"items"`
}

// ToOrder builds the order tree with defaults applied. Origin is always
// PLATFORM regardless of what the client sent.
func (c CreateOrder) ToOrder(now time.Time) *order.Order {
	o := &order.Order{
		BusinessID: c.BusinessID,
		UserID:     c.UserID,
		Status:     c.Status,
		Origin:     order.OriginPlatform,
		IsTest:     c.IsTest,
		Total:      c.Total,
		Customer: order.Snapshot{
			Name:      c.CustomerName,
			Phone:     c.CustomerPhone,
			Address:   c.CustomerAddress,
			Latitude:  c.CustomerLatitude,
			Longitude: c.CustomerLongitude,
		},
		Business: order.Snapshot{
			Name:      c.BusinessName,
			Phone:     c.BusinessPhone,
			Address:   c.BusinessAddress,
			Latitude:  c.BusinessLatitude,
			Longitude: c.BusinessLongitude,
		},
		TotalDeliveryCost:   c.TotalDeliveryCost,
		PaymentMethod:       c.OrderPaymentMethod,
		PaymentStatus:       c.PaymentStatus,
		CadetPaymentPayer:   c.CadetPaymentPayer,
		CadetPaymentMethod:  c.CadetPaymentMethod,
		PaymentReceiptURL:   c.PaymentReceiptURL,
		PaymentInstructions: c.PaymentInstructions,
		PaymentHolderName:   c.PaymentHolderName,
		PaymentExpected:     c.PaymentExpected,
		PaymentReceived:     c.PaymentReceived,
		DeliveryType:        c.DeliveryType,
		Notes:               c.Notes,
		Items:               c.Items,
		Discounts:           []order.Discount{},
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if o.Status == "" {
		o.Status = order.StatusPending
	}
	if o.PaymentStatus == "" {
		o.PaymentStatus = order.PaymentPending
	}
	if o.CadetPaymentPayer == "" {
		o.CadetPaymentPayer = order.PayerClient
	}
	if o.DeliveryType == "" {
		o.DeliveryType = order.DeliveryTypeDelivery
	}
	return o
}

// UpdateOrder patches the mutable fields of an order. Nil fields keep their
// stored value.
type UpdateOrder struct {
	Notes              *string              `json:"notes"`
	DeliveryType       *order.DeliveryType  `json:"deliveryType"`
	IsTest             *bool                `json:"isTest"`
	TotalDeliveryCost  *decimal.Decimal     `json:"totalDeliveryCost"`
	CustomerAddress    *string              `json:"customerAddress"`
	CadetPaymentPayer  *order.Payer         `json:"cadetPaymentPayer"`
	CadetPaymentMethod *order.PaymentMethod `json:"cadetPaymentMethod"`
	PaymentExpected    []order.PaymentEntry `json:"paymentExpected"`
	PaymentReceived    []order.PaymentEntry `json:"paymentReceived"`
}

// UpdatePayment merges payment metadata. Nil fields keep their stored value.
type UpdatePayment struct {
	Method       *order.PaymentMethod `json:"orderPaymentMethod"`
	Status       *order.PaymentStatus `json:"paymentStatus"`
	ReceiptURL   *string              `json:"paymentReceiptUrl"`
	Instructions *string              `json:"paymentInstructions"`
	HolderName   *string              `json:"paymentHolderName"`
}

type AddDiscount struct {
	Amount     decimal.Decimal    `json:"amount"`
	Type       order.DiscountType `json:"discountType"`
	Notes      string             `json:"notes"`
	AbsorbedBy order.Party        `json:"absorbedBy"`
}
