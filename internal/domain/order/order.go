package order

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the order lifecycle state.
type Status string

const (
	StatusPending                Status = "PENDING"
	StatusConfirmed              Status = "CONFIRMED"
	StatusReadyForCustomerPickup Status = "READY_FOR_CUSTOMER_PICKUP"
	StatusOutForDelivery         Status = "OUT_FOR_DELIVERY"
	StatusDelivered              Status = "DELIVERED"
	StatusCancelledByBusiness    Status = "CANCELLED_BY_BUSINESS"
	StatusCancelledByDelivery    Status = "CANCELLED_BY_DELIVERY"
	StatusRejectedByBusiness     Status = "REJECTED_BY_BUSINESS"
)

type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "PENDING"
	PaymentInProgress PaymentStatus = "IN_PROGRESS"
	PaymentConfirmed  PaymentStatus = "CONFIRMED"
	PaymentRejected   PaymentStatus = "REJECTED"
)

type PaymentMethod string

const (
	MethodCash     PaymentMethod = "CASH"
	MethodTransfer PaymentMethod = "TRANSFER"
)

// Payer is who pays the cadet (courier) for the delivery.
type Payer string

const (
	PayerClient   Payer = "CLIENT"
	PayerBusiness Payer = "BUSINESS"
)

type DeliveryType string

const (
	DeliveryTypeDelivery DeliveryType = "DELIVERY"
	DeliveryTypePickup   DeliveryType = "PICKUP"
)

type Origin string

// OriginPlatform is the only origin written by this engine.
const OriginPlatform Origin = "PLATFORM"

// LedgerItemType is the economic bucket a payment breakdown entry covers.
type LedgerItemType string

const (
	LedgerOrder    LedgerItemType = "ORDER"
	LedgerDelivery LedgerItemType = "DELIVERY"
	LedgerDiscount LedgerItemType = "DISCOUNT"
)

// Party receives money (ledger target) or absorbs a discount.
type Party string

const (
	PartyBusiness Party = "BUSINESS"
	PartyCadet    Party = "CADET"
	PartySystem   Party = "SYSTEM"
)

type QuantityType string

const (
	QuantityFixed QuantityType = "FIXED"
	QuantityRange QuantityType = "RANGE"
)

type PriceModifierType string

const (
	PriceNoChange PriceModifierType = "NO_CHANGE"
	PriceIncrease PriceModifierType = "INCREASE"
)

type DiscountType string

const (
	DiscountFixed      DiscountType = "FIXED"
	DiscountPercentage DiscountType = "PERCENTAGE"
	DiscountPromotion  DiscountType = "PROMOTION"
)

// Snapshot is a copy of a customer or business record taken when the order
// is created.
type Snapshot struct {
	Name      string              `json:"name"`
	Phone     string              `json:"phone"`
	Address   string              `json:"address"`
	Latitude  decimal.NullDecimal `json:"latitude"`
	Longitude decimal.NullDecimal `json:"longitude"`
}

// PaymentEntry is one line of the expected or received payment ledger.
type PaymentEntry struct {
	Amount   decimal.Decimal `json:"amount"`
	Method   PaymentMethod   `json:"method"`
	ItemType LedgerItemType  `json:"itemType"`
	Target   Party           `json:"target"`
	Note     string          `json:"note,omitempty"`
}

// Order is the aggregate: header, items with their option groups,
// discounts and the payment ledgers.
type Order struct {
	ID                string          `json:"id"`
	BusinessID        string          `json:"businessId"`
	UserID            string          `json:"userId"`
	DeliveryCompanyID string          `json:"deliveryCompanyId,omitempty"`
	Status            Status          `json:"status"`
	Origin            Origin          `json:"origin"`
	IsTest            bool            `json:"isTest"`
	Total             decimal.Decimal `json:"total"`
	TotalDeliveryCost decimal.Decimal `json:"totalDeliveryCost"`
	Customer          Snapshot        `json:"customer"`
	Business          Snapshot        `json:"business"`

	PaymentMethod       PaymentMethod  `json:"orderPaymentMethod"`
	PaymentStatus       PaymentStatus  `json:"paymentStatus"`
	CadetPaymentPayer   Payer          `json:"cadetPaymentPayer"`
	CadetPaymentMethod  PaymentMethod  `json:"cadetPaymentMethod,omitempty"`
	PaymentReceiptURL   string         `json:"paymentReceiptUrl,omitempty"`
	PaymentInstructions string         `json:"paymentInstructions,omitempty"`
	PaymentHolderName   string         `json:"paymentHolderName,omitempty"`
	PaymentExpected     []PaymentEntry `json:"paymentExpected"`
	PaymentReceived     []PaymentEntry `json:"paymentReceived"`

	DeliveryType DeliveryType `json:"deliveryType"`
	Notes        string       `json:"notes,omitempty"`

	Items     []Item     `json:"items"`
	Discounts []Discount `json:"discounts"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Item is one ordered product with the price it had at purchase.
type Item struct {
	ID                 string          `json:"id"`
	OrderID            string          `json:"orderId"`
	MenuProductID      string          `json:"menuProductId"`
	ProductName        string          `json:"productName"`
	ProductDescription string          `json:"productDescription,omitempty"`
	ProductImage       string          `json:"productImage,omitempty"`
	Quantity           int             `json:"quantity"`
	PriceAtPurchase    decimal.Decimal `json:"priceAtPurchase"`
	Notes              string          `json:"notes,omitempty"`
	OptionGroups       []OptionGroup   `json:"optionGroups"`
}

type OptionGroup struct {
	ID           string       `json:"id"`
	OrderItemID  string       `json:"orderItemId"`
	GroupName    string       `json:"groupName"`
	MinQuantity  int          `json:"minQuantity"`
	MaxQuantity  int          `json:"maxQuantity"`
	QuantityType QuantityType `json:"quantityType"`
	// CatalogGroupID is empty when the selection does not reference a
	// catalog group, or the group has since been deleted.
	CatalogGroupID string   `json:"opcionGrupoId,omitempty"`
	Options        []Option `json:"options"`
}

type Option struct {
	ID                string            `json:"id"`
	OptionGroupID     string            `json:"optionGroupId"`
	OptionName        string            `json:"optionName"`
	PriceModifierType PriceModifierType `json:"priceModifierType"`
	Quantity          int               `json:"quantity"`
	PriceFinal        decimal.Decimal   `json:"priceFinal"`
	PriceWithoutTaxes decimal.Decimal   `json:"priceWithoutTaxes"`
	TaxesAmount       decimal.Decimal   `json:"taxesAmount"`
	CatalogOptionID   string            `json:"opcionId,omitempty"`
}

type Discount struct {
	ID         string          `json:"id"`
	OrderID    string          `json:"orderId"`
	Amount     decimal.Decimal `json:"amount"`
	Type       DiscountType    `json:"discountType"`
	Notes      string          `json:"notes,omitempty"`
	AbsorbedBy Party           `json:"absorbedBy,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// ProductIDs returns the distinct catalog product ids referenced by the
// order items, in first-seen order.
func (o *Order) ProductIDs() []string {
	seen := make(map[string]bool, len(o.Items))
	ids := make([]string, 0, len(o.Items))
	for _, item := range o.Items {
		if seen[item.MenuProductID] {
			continue
		}
		seen[item.MenuProductID] = true
		ids = append(ids, item.MenuProductID)
	}
	return ids
}

// Clone returns a deep copy of the order tree.
func (o *Order) Clone() *Order {
	c := *o
	c.PaymentExpected = slices.Clone(o.PaymentExpected)
	c.PaymentReceived = slices.Clone(o.PaymentReceived)
	c.Discounts = slices.Clone(o.Discounts)
	c.Items = slices.Clone(o.Items)
	for i := range c.Items {
		c.Items[i].OptionGroups = slices.Clone(c.Items[i].OptionGroups)
		for j := range c.Items[i].OptionGroups {
			c.Items[i].OptionGroups[j].Options = slices.Clone(c.Items[i].OptionGroups[j].Options)
		}
	}
	return &c
}
