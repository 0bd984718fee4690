package order

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderJSON_MoneyKeepsTwoDigits(t *testing.T) {
	o := newValidOrder()
	o.Total = decimal.RequireFromString("20.00")
	o.TotalDeliveryCost = decimal.RequireFromString("5")
	o.Discounts = []Discount{{ID: "d-1", Amount: decimal.RequireFromString("1.5"), Type: DiscountFixed}}

	data, err := json.Marshal(o)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "20.00", raw["total"])
	assert.Equal(t, "5.00", raw["totalDeliveryCost"])
	assert.Equal(t, "20.00", raw["paymentExpected"].([]any)[0].(map[string]any)["amount"])
	assert.Equal(t, "1.50", raw["discounts"].([]any)[0].(map[string]any)["amount"])

	item := raw["items"].([]any)[0].(map[string]any)
	assert.Equal(t, "10.00", item["priceAtPurchase"])
	option := item["optionGroups"].([]any)[0].(map[string]any)["options"].([]any)[0].(map[string]any)
	assert.Equal(t, "2.50", option["priceFinal"])
	assert.Equal(t, "2.10", option["priceWithoutTaxes"])
	assert.Equal(t, "0.40", option["taxesAmount"])

	// Non-money fields are untouched
	assert.Equal(t, string(o.Status), raw["status"])
	assert.Equal(t, o.BusinessID, raw["businessId"])
}

func TestOrderJSON_DecodesWhatItWrites(t *testing.T) {
	o := newValidOrder()
	o.Total = decimal.RequireFromString("20")

	data, err := json.Marshal(o)
	require.NoError(t, err)

	var decoded Order
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, o.Total.Equal(decoded.Total))
	assert.Equal(t, o.Items[0].ProductName, decoded.Items[0].ProductName)
	assert.True(t, o.Items[0].OptionGroups[0].Options[0].TaxesAmount.Equal(decoded.Items[0].OptionGroups[0].Options[0].TaxesAmount))
}
