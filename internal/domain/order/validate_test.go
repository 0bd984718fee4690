package order

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidOrder() *Order {
	ledger := []PaymentEntry{{
		Amount:   decimal.RequireFromString("20.00"),
		Method:   MethodCash,
		ItemType: LedgerOrder,
		Target:   PartyBusiness,
	}}
	return &Order{
		UserID:            "user-1",
		BusinessID:        "biz-1",
		Status:            StatusPending,
		Total:             decimal.RequireFromString("20.00"),
		TotalDeliveryCost: decimal.Zero,
		Customer:          Snapshot{Name: "Ana", Phone: "555-0101"},
		Business:          Snapshot{Name: "Pizzeria", Phone: "555-0202", Address: "Main St 1"},
		PaymentMethod:     MethodCash,
		PaymentStatus:     PaymentPending,
		CadetPaymentPayer: PayerClient,
		PaymentExpected:   ledger,
		PaymentReceived:   ledger,
		DeliveryType:      DeliveryTypeDelivery,
		Items: []Item{{
			MenuProductID:   "prod-1",
			ProductName:     "Margherita",
			Quantity:        2,
			PriceAtPurchase: decimal.RequireFromString("10.00"),
			OptionGroups: []OptionGroup{{
				GroupName:    "Size",
				MinQuantity:  1,
				MaxQuantity:  1,
				QuantityType: QuantityFixed,
				Options: []Option{{
					OptionName:        "Large",
					PriceModifierType: PriceIncrease,
					Quantity:          1,
					PriceFinal:        decimal.RequireFromString("2.50"),
					PriceWithoutTaxes: decimal.RequireFromString("2.10"),
					TaxesAmount:       decimal.RequireFromString("0.40"),
				}},
			}},
		}},
	}
}

func TestValidateNew_Valid(t *testing.T) {
	require.NoError(t, ValidateNew(newValidOrder(), true))
}

func TestValidateNew_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(o *Order)
	}{
		{"missing user", func(o *Order) { o.UserID = "" }},
		{"blank business address", func(o *Order) { o.Business.Address = "  " }},
		{"negative total", func(o *Order) { o.Total = decimal.RequireFromString("-1") }},
		{"three decimals", func(o *Order) { o.Total = decimal.RequireFromString("1.005") }},
		{"unknown method", func(o *Order) { o.PaymentMethod = "BITCOIN" }},
		{"unknown delivery type", func(o *Order) { o.DeliveryType = "DRONE" }},
		{"empty expected ledger", func(o *Order) { o.PaymentExpected = nil }},
		{"empty received ledger", func(o *Order) { o.PaymentReceived = []PaymentEntry{} }},
		{"bad ledger target", func(o *Order) {
			o.PaymentReceived = []PaymentEntry{{Amount: decimal.Zero, Method: MethodCash, ItemType: LedgerOrder, Target: "BANK"}}
		}},
		{"no items", func(o *Order) { o.Items = nil }},
		{"zero quantity", func(o *Order) { o.Items[0].Quantity = 0 }},
		{"max below min", func(o *Order) { o.Items[0].OptionGroups[0].MaxQuantity = 0 }},
		{"option price precision", func(o *Order) {
			o.Items[0].OptionGroups[0].Options[0].PriceFinal = decimal.RequireFromString("0.001")
		}},
		{"coordinate precision", func(o *Order) {
			o.Customer.Latitude = decimal.NewNullDecimal(decimal.RequireFromString("-34.123456789"))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newValidOrder()
			tt.mutate(o)
			err := ValidateNew(o, true)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestValidateNew_TrailingZerosAccepted(t *testing.T) {
	o := newValidOrder()
	o.Total = decimal.RequireFromString("20.000")
	o.Customer.Latitude = decimal.NewNullDecimal(decimal.RequireFromString("-34.6037220"))

	assert.NoError(t, ValidateNew(o, true))
}

func TestValidateNew_ItemsOptionalForRootCreate(t *testing.T) {
	o := newValidOrder()
	o.Items = nil

	assert.NoError(t, ValidateNew(o, false))
}

func TestValidateDiscount(t *testing.T) {
	assert.NoError(t, ValidateDiscount(Discount{Amount: decimal.RequireFromString("5"), Type: DiscountFixed}))
	assert.ErrorIs(t, ValidateDiscount(Discount{Amount: decimal.RequireFromString("5"), Type: "BOGO"}), ErrValidation)
	assert.ErrorIs(t, ValidateDiscount(Discount{Amount: decimal.RequireFromString("5"), Type: DiscountFixed, AbsorbedBy: "BANK"}), ErrValidation)
}

func TestOrder_CloneIsDeep(t *testing.T) {
	o := newValidOrder()
	c := o.Clone()

	c.Items[0].OptionGroups[0].Options[0].OptionName = "Small"
	c.PaymentExpected[0].Note = "changed"

	assert.Equal(t, "Large", o.Items[0].OptionGroups[0].Options[0].OptionName)
	assert.Empty(t, o.PaymentExpected[0].Note)
}

func TestOrder_ProductIDsDistinct(t *testing.T) {
	o := newValidOrder()
	o.Items = append(o.Items, o.Items[0], Item{MenuProductID: "prod-2"})

	assert.Equal(t, []string{"prod-1", "prod-2"}, o.ProductIDs())
}
